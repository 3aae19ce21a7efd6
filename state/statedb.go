// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state provides a journaled contract storage backed by a
// key-value database. Writes are buffered until Commit; snapshots let a
// caller discard every write and log made after a point.
package state

import (
	"errors"
	"fmt"
	"sort"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/luxfi/lightswap/contract"
)

var _ contract.StateDB = (*StateDB)(nil)

// ErrInvalidSnapshot is returned when reverting to an unknown snapshot.
var ErrInvalidSnapshot = errors.New("invalid snapshot id")

type slotKey struct {
	addr common.Address
	key  common.Hash
}

// dbKey is addr(20) || key(32)
func (s slotKey) dbKey() []byte {
	out := make([]byte, common.AddressLength+common.HashLength)
	copy(out, s.addr.Bytes())
	copy(out[common.AddressLength:], s.key.Bytes())
	return out
}

type journalEntry struct {
	slot    slotKey
	prev    common.Hash
	hadPrev bool
}

type revision struct {
	id           int
	journalIndex int
	logIndex     int
}

// StateDB buffers storage writes over a database.Database.
// It is not safe for concurrent use; the host serializes access.
type StateDB struct {
	db database.Database

	dirty   map[slotKey]common.Hash
	journal []journalEntry

	revisions  []revision
	nextRevID  int
	logs       []*types.Log
	blockNum   uint64
	txIndex    uint
	logCounter uint

	dbErr error
}

// New returns a StateDB reading committed storage from db.
func New(db database.Database) *StateDB {
	return &StateDB{
		db:    db,
		dirty: make(map[slotKey]common.Hash),
	}
}

// SetTxContext sets the block number and transaction index stamped on logs.
func (s *StateDB) SetTxContext(blockNumber uint64, txIndex uint) {
	s.blockNum = blockNumber
	s.txIndex = txIndex
}

// GetState returns the value of key in addr's storage.
func (s *StateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	slot := slotKey{addr, key}
	if val, ok := s.dirty[slot]; ok {
		return val
	}
	return s.committed(slot)
}

func (s *StateDB) committed(slot slotKey) common.Hash {
	raw, err := s.db.Get(slot.dbKey())
	switch {
	case errors.Is(err, database.ErrNotFound):
		return common.Hash{}
	case err != nil:
		if s.dbErr == nil {
			s.dbErr = fmt.Errorf("reading %s/%s: %w", slot.addr, slot.key, err)
		}
		return common.Hash{}
	}
	return common.BytesToHash(raw)
}

// SetState records a write, journaling the previous value.
func (s *StateDB) SetState(addr common.Address, key common.Hash, value common.Hash) {
	slot := slotKey{addr, key}
	prev, hadPrev := s.dirty[slot]
	s.journal = append(s.journal, journalEntry{slot: slot, prev: prev, hadPrev: hadPrev})
	s.dirty[slot] = value
}

// AddLog appends a log stamped with the current tx context.
func (s *StateDB) AddLog(log *types.Log) {
	log.BlockNumber = s.blockNum
	log.TxIndex = s.txIndex
	log.Index = s.logCounter
	s.logCounter++
	s.logs = append(s.logs, log)
}

// Logs returns the logs emitted since the last Commit.
func (s *StateDB) Logs() []*types.Log {
	return s.logs
}

// Snapshot returns an identifier for the current revision of the state.
func (s *StateDB) Snapshot() int {
	id := s.nextRevID
	s.nextRevID++
	s.revisions = append(s.revisions, revision{
		id:           id,
		journalIndex: len(s.journal),
		logIndex:     len(s.logs),
	})
	return id
}

// RevertToSnapshot undoes every write and log made after the snapshot.
// Unknown ids panic, matching how geth treats a corrupted revision stack.
func (s *StateDB) RevertToSnapshot(id int) {
	idx := sort.Search(len(s.revisions), func(i int) bool {
		return s.revisions[i].id >= id
	})
	if idx == len(s.revisions) || s.revisions[idx].id != id {
		panic(fmt.Errorf("%w: %d", ErrInvalidSnapshot, id))
	}
	rev := s.revisions[idx]

	for i := len(s.journal) - 1; i >= rev.journalIndex; i-- {
		entry := s.journal[i]
		if entry.hadPrev {
			s.dirty[entry.slot] = entry.prev
		} else {
			delete(s.dirty, entry.slot)
		}
	}
	s.journal = s.journal[:rev.journalIndex]
	s.logs = s.logs[:rev.logIndex]
	s.logCounter = uint(rev.logIndex)
	s.revisions = s.revisions[:idx]
}

// Error returns the first database read failure, if any.
func (s *StateDB) Error() error {
	return s.dbErr
}

// Commit flushes buffered writes to the database in one batch and resets
// the journal, snapshots and logs. Zero values delete their slot.
func (s *StateDB) Commit() error {
	if s.dbErr != nil {
		return s.dbErr
	}
	batch := s.db.NewBatch()
	for slot, val := range s.dirty {
		if val == (common.Hash{}) {
			if err := batch.Delete(slot.dbKey()); err != nil {
				return fmt.Errorf("deleting %s/%s: %w", slot.addr, slot.key, err)
			}
			continue
		}
		if err := batch.Put(slot.dbKey(), val.Bytes()); err != nil {
			return fmt.Errorf("writing %s/%s: %w", slot.addr, slot.key, err)
		}
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("committing state: %w", err)
	}
	s.Discard()
	return nil
}

// Discard drops every uncommitted write and log and clears any read error.
func (s *StateDB) Discard() {
	s.dbErr = nil
	s.dirty = make(map[slotKey]common.Hash)
	s.journal = s.journal[:0]
	s.revisions = s.revisions[:0]
	s.logs = nil
	s.logCounter = 0
}
