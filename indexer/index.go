// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package indexer

import (
	"math"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/lightswap/contract"
)

// Head is the sentinel node of every index list. Head's next entry has
// the highest score and its previous entry the lowest.
var Head = common.HexToAddress("0xFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF")

// StakedLocator is one user's intent within an index. The zero value is
// returned for users without an entry.
type StakedLocator struct {
	User    common.Address
	Score   *uint256.Int
	Locator [32]byte
}

// Index is the list of intents for one token pair, kept in descending
// score order. An entry whose score is equal to existing ones is placed
// after them, so equal scores keep first-come order.
type Index struct {
	stateDB contract.StateDB
	id      common.Hash
}

// IndexID identifies the index of a token pair.
func IndexID(signerToken, senderToken common.Address) common.Hash {
	return contract.StorageKey("index", signerToken.Bytes(), senderToken.Bytes())
}

// OpenIndex returns a handle on the index id. It does not check that the
// index was created.
func OpenIndex(stateDB contract.StateDB, id common.Hash) *Index {
	return &Index{stateDB: stateDB, id: id}
}

// ID returns the index identifier.
func (x *Index) ID() common.Hash {
	return x.id
}

func (x *Index) slot(field string, user common.Address) common.Hash {
	return contract.StorageKey("entry", x.id.Bytes(), user.Bytes(), []byte(field))
}

func (x *Index) lengthSlot() common.Hash {
	return contract.StorageKey("length", x.id.Bytes())
}

// link reads a list pointer. Head's pointers read as Head on an empty list.
func (x *Index) link(field string, user common.Address) common.Address {
	ptr := contract.GetAddress(x.stateDB, Address, x.slot(field, user))
	if user == Head && ptr == (common.Address{}) {
		return Head
	}
	return ptr
}

func (x *Index) setLink(field string, user, ptr common.Address) {
	contract.SetAddress(x.stateDB, Address, x.slot(field, user), ptr)
}

func (x *Index) next(user common.Address) common.Address { return x.link("next", user) }

func (x *Index) prev(user common.Address) common.Address { return x.link("prev", user) }

// Has reports whether user has an entry.
func (x *Index) Has(user common.Address) bool {
	if user == Head || user == (common.Address{}) {
		return false
	}
	return x.next(user) != (common.Address{})
}

// Length returns the number of entries.
func (x *Index) Length() uint64 {
	return contract.GetUint256(x.stateDB, Address, x.lengthSlot()).Uint64()
}

func (x *Index) setLength(n uint64) {
	contract.SetUint256(x.stateDB, Address, x.lengthSlot(), uint256.NewInt(n))
}

// GetScore returns user's score, zero when absent.
func (x *Index) GetScore(user common.Address) *uint256.Int {
	if !x.Has(user) {
		return new(uint256.Int)
	}
	return contract.GetUint256(x.stateDB, Address, x.slot("score", user))
}

// GetLocator returns user's entry or the zero StakedLocator.
func (x *Index) GetLocator(user common.Address) StakedLocator {
	if !x.Has(user) {
		return StakedLocator{Score: new(uint256.Int)}
	}
	return StakedLocator{
		User:    user,
		Score:   contract.GetUint256(x.stateDB, Address, x.slot("score", user)),
		Locator: x.stateDB.GetState(Address, x.slot("locator", user)),
	}
}

// SetLocator inserts or updates user's entry. A changed score moves the
// entry behind every other entry with a score at least as high. Head and
// the zero address cannot hold entries and are ignored.
func (x *Index) SetLocator(user common.Address, score *uint256.Int, locator [32]byte) {
	if user == Head || user == (common.Address{}) {
		return
	}
	if x.Has(user) {
		if x.GetScore(user).Eq(score) {
			x.stateDB.SetState(Address, x.slot("locator", user), locator)
			return
		}
		x.UnsetLocator(user)
	}

	cursor := x.next(Head)
	for cursor != Head && !x.GetScore(cursor).Lt(score) {
		cursor = x.next(cursor)
	}
	before := x.prev(cursor)

	x.setLink("next", user, cursor)
	x.setLink("prev", user, before)
	x.setLink("next", before, user)
	x.setLink("prev", cursor, user)
	contract.SetUint256(x.stateDB, Address, x.slot("score", user), score)
	x.stateDB.SetState(Address, x.slot("locator", user), locator)
	x.setLength(x.Length() + 1)
}

// UnsetLocator removes user's entry and reports whether there was one.
func (x *Index) UnsetLocator(user common.Address) bool {
	if !x.Has(user) {
		return false
	}
	before, after := x.prev(user), x.next(user)
	x.setLink("next", before, after)
	x.setLink("prev", after, before)

	for _, field := range []string{"next", "prev", "score", "locator"} {
		x.stateDB.SetState(Address, x.slot(field, user), common.Hash{})
	}
	x.setLength(x.Length() - 1)
	return true
}

// FetchLocators returns up to count entries that follow startAfter in
// score order, starting at the top for the zero address. An unknown
// cursor yields nothing. next is the cursor for the following page, or
// the zero address once the list is exhausted.
func (x *Index) FetchLocators(startAfter common.Address, count uint64) (locators [][32]byte, scores []*uint256.Int, next common.Address) {
	var cursor common.Address
	switch {
	case startAfter == (common.Address{}):
		cursor = x.next(Head)
	case x.Has(startAfter):
		cursor = x.next(startAfter)
	default:
		return [][32]byte{}, []*uint256.Int{}, common.Address{}
	}

	size := min(count, x.Length(), math.MaxInt32)
	locators = make([][32]byte, 0, size)
	scores = make([]*uint256.Int, 0, size)
	var last common.Address
	for cursor != Head && uint64(len(locators)) < count {
		entry := x.GetLocator(cursor)
		locators = append(locators, entry.Locator)
		scores = append(scores, entry.Score)
		last = cursor
		cursor = x.next(cursor)
	}
	if cursor != Head && len(locators) > 0 {
		next = last
	}
	return locators, scores, next
}
