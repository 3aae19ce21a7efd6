// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package archive keeps a queryable copy of committed precompile events in
// SQLite.
package archive

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	log "github.com/luxfi/log"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/luxfi/lightswap/allowlist"
	"github.com/luxfi/lightswap/contract"
	"github.com/luxfi/lightswap/erc20"
	"github.com/luxfi/lightswap/indexer"
	"github.com/luxfi/lightswap/light"
	"github.com/luxfi/lightswap/registry"
)

// EventRecord is one archived log.
type EventRecord struct {
	ID           uint   `gorm:"primaryKey"`
	BlockNumber  uint64 `gorm:"index:idx_position,priority:1"`
	TxIndex      uint   `gorm:"index:idx_position,priority:2"`
	LogIndex     uint   `gorm:"index:idx_position,priority:3"`
	Contract     string `gorm:"index;size:42"`
	ContractName string
	Event        string `gorm:"index"`
	Topics       string
	Data         []byte
	// Fields holds the decoded non-indexed arguments as JSON.
	Fields string
}

// Store is a SQLite event archive.
type Store struct {
	db     *gorm.DB
	logger log.Logger
	abis   map[common.Address]contract.ExtendedABI
}

// Open creates or opens the archive at path.
func Open(path string, logger log.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if err := db.AutoMigrate(&EventRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate archive: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger,
		abis: map[common.Address]contract.ExtendedABI{
			light.Address:     light.LightABI(),
			indexer.Address:   indexer.IndexerABI(),
			erc20.Address:     erc20.BankABI(),
			allowlist.Address: allowlist.ListABI(),
		},
	}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record stores logs in one transaction.
func (s *Store) Record(logs []*types.Log) error {
	records := make([]EventRecord, 0, len(logs))
	for _, l := range logs {
		records = append(records, s.decode(l))
	}
	if len(records) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&records).Error
	})
}

func (s *Store) decode(l *types.Log) EventRecord {
	topics := make([]string, len(l.Topics))
	for i, t := range l.Topics {
		topics[i] = t.Hex()
	}
	rec := EventRecord{
		BlockNumber: l.BlockNumber,
		TxIndex:     l.TxIndex,
		LogIndex:    l.Index,
		Contract:    l.Address.Hex(),
		Topics:      strings.Join(topics, ","),
		Data:        l.Data,
	}
	if name, ok := registry.NameOf(l.Address); ok {
		rec.ContractName = name
	}

	a, ok := s.abis[l.Address]
	if !ok || len(l.Topics) == 0 {
		return rec
	}
	event, err := a.EventByID(l.Topics[0])
	if err != nil {
		s.logger.Warn("unknown event", "contract", rec.Contract, "topic", l.Topics[0])
		return rec
	}
	rec.Event = event.Name

	fields := make(map[string]interface{})
	if err := event.Inputs.NonIndexed().UnpackIntoMap(fields, l.Data); err != nil {
		s.logger.Warn("undecodable event", "event", event.Name, "err", err)
		return rec
	}
	for k, v := range fields {
		switch v := v.(type) {
		case *big.Int:
			fields[k] = v.String()
		case [32]byte:
			fields[k] = common.Hash(v).Hex()
		}
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		s.logger.Warn("unencodable event", "event", event.Name, "err", err)
		return rec
	}
	rec.Fields = string(encoded)
	return rec
}

// ByContract returns the events of the contract at addr in chain order.
func (s *Store) ByContract(addr common.Address) ([]EventRecord, error) {
	var records []EventRecord
	err := s.ordered().Where("contract = ?", addr.Hex()).Find(&records).Error
	return records, err
}

// ByEvent returns every event named name in chain order.
func (s *Store) ByEvent(name string) ([]EventRecord, error) {
	var records []EventRecord
	err := s.ordered().Where("event = ?", name).Find(&records).Error
	return records, err
}

func (s *Store) ordered() *gorm.DB {
	return s.db.Order("block_number, tx_index, log_index")
}
