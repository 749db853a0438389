package gormrepository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"strategyhub/internal/models"
	"strategyhub/internal/repository"
	"strategyhub/internal/strategy"
)

// newDryRunStore builds statements against the postgres dialect without a
// server and records every DELETE it would send.
func newDryRunStore(t *testing.T) (*Store, *[]string) {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=127.0.0.1 user=test dbname=test sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var statements []string
	err = db.Callback().Delete().After("gorm:delete").Register("test:record_sql", func(tx *gorm.DB) {
		statements = append(statements, tx.Statement.SQL.String())
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	return New(db), &statements
}

func TestDeleteStrategyTx_RemovesConditionsThroughOwnedSubquery(t *testing.T) {
	store, statements := newDryRunStore(t)
	if _, err := store.DeleteStrategyTx(context.Background(), nil, 7, 11); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got := *statements
	if len(got) != 2 {
		t.Fatalf("statements=%q want=2", got)
	}
	first := got[0]
	if !strings.HasPrefix(first, `DELETE FROM "conditions"`) {
		t.Fatalf("first=%s want conditions delete", first)
	}
	if !strings.Contains(first, "strategy_id IN (SELECT") || !strings.Contains(first, `FROM "strategies" WHERE id = $1 AND user_id = $2)`) {
		t.Fatalf("first=%s want owned strategy subquery", first)
	}
	second := got[1]
	if !strings.HasPrefix(second, `DELETE FROM "strategies"`) || !strings.Contains(second, "id = $1 AND user_id = $2") {
		t.Fatalf("second=%s want owner scoped strategy delete", second)
	}
}

func TestDeleteConditionSetTx_ByIDs(t *testing.T) {
	store, statements := newDryRunStore(t)
	sel := repository.ConditionSelector{IDs: []uint64{3, 4, 5}}
	if err := store.DeleteConditionSetTx(context.Background(), nil, sel); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got := *statements
	if len(got) != 1 {
		t.Fatalf("statements=%q want=1", got)
	}
	if !strings.HasPrefix(got[0], `DELETE FROM "conditions"`) || !strings.Contains(got[0], "id IN ($1,$2,$3)") {
		t.Fatalf("sql=%s", got[0])
	}
}

func TestDeleteConditionSetTx_ByItemsSkipsUnsaved(t *testing.T) {
	store, statements := newDryRunStore(t)
	sel := repository.ConditionSelector{Items: []models.Condition{{ID: 8}, {ID: 0}, {ID: 9}}}
	if err := store.DeleteConditionSetTx(context.Background(), nil, sel); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got := *statements
	if len(got) != 2 {
		t.Fatalf("statements=%q want=2", got)
	}
	for _, sql := range got {
		if !strings.HasPrefix(sql, `DELETE FROM "conditions"`) || !strings.Contains(sql, `"conditions"."id" = $1`) {
			t.Fatalf("sql=%s", sql)
		}
	}
}

func TestDeleteConditionSetTx_RejectsBothSelectors(t *testing.T) {
	store, statements := newDryRunStore(t)
	sel := repository.ConditionSelector{IDs: []uint64{1}, Items: []models.Condition{{ID: 1}}}
	err := store.DeleteConditionSetTx(context.Background(), nil, sel)
	if !errors.Is(err, strategy.ErrInvalidConditionDataStructure) {
		t.Fatalf("err=%v want=ErrInvalidConditionDataStructure", err)
	}
	if len(*statements) != 0 {
		t.Fatalf("statements=%q want none", *statements)
	}
}
