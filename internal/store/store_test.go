package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gps-report/internal/db"
	"gps-report/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(db.TestDBPath(t), slog.New(slog.DiscardHandler))
}

func createKV(t *testing.T, s *Store, name string) {
	t.Helper()
	require.NoError(t, s.CreateTable(context.Background(), domain.TableDescriptor{
		Name: name,
		Columns: []domain.ColumnDef{
			{Name: "k", Type: "INTEGER"},
			{Name: "v", Type: "TEXT"},
		},
		PrimaryKey: []string{"k"},
	}))
}

func count(t *testing.T, s *Store, table string) int64 {
	t.Helper()
	res, err := s.Query(context.Background(), "SELECT COUNT(*) FROM "+table)
	require.NoError(t, err)
	return res.Rows[0][0].(int64)
}

func TestTableExists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.TableExists(ctx, "stats")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.TableExists(ctx, "file_available")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTableExists_MissingFileIsCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.db")
	s := New(path, nil)

	ok, err := s.TableExists(context.Background(), "anything")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.FileExists(t, path)
}

func TestCreateTable_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	desc := domain.TableDescriptor{
		Name: "stats",
		Columns: []domain.ColumnDef{
			{Name: "date", Type: "TEXT"},
			{Name: "player", Type: "TEXT"},
			{Name: "distance", Type: "REAL"},
		},
		PrimaryKey: []string{"date", "player"},
	}

	require.NoError(t, s.CreateTable(ctx, desc))
	require.NoError(t, s.CreateTable(ctx, desc))

	got, err := s.Describe(ctx, "stats")
	require.NoError(t, err)
	assert.Equal(t, desc, got)
}

func TestCreateTable_ExistingSchemaUntouched(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createKV(t, s, "kv")

	require.NoError(t, s.CreateTable(ctx, domain.TableDescriptor{
		Name:    "kv",
		Columns: []domain.ColumnDef{{Name: "other", Type: "TEXT"}},
	}))

	cols, err := s.Columns(ctx, "kv")
	require.NoError(t, err)
	assert.Equal(t, []string{"k", "v"}, columnNames(cols))
}

func TestCreateTable_InvalidDescriptor(t *testing.T) {
	s := newTestStore(t)
	err := s.CreateTable(context.Background(), domain.TableDescriptor{
		Name:       "bad",
		Columns:    []domain.ColumnDef{{Name: "a"}},
		PrimaryKey: []string{"b"},
	})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestExec_RowsAffected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createKV(t, s, "kv")
	_, err := s.InsertTable(ctx, "kv", domain.NewRowBatch([]string{"k", "v"},
		[]any{int64(1), "a"}, []any{int64(2), "b"}, []any{int64(3), "c"}))
	require.NoError(t, err)

	n, err := s.Exec(ctx, `DELETE FROM kv WHERE k < ?`, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, int64(1), count(t, s, "kv"))

	n, err = s.Exec(ctx, `DELETE FROM kv WHERE k < ?`, 3)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = s.Exec(ctx, `DELETE FROM missing`)
	require.ErrorContains(t, err, "exec")
}

func TestListTables(t *testing.T) {
	s := newTestStore(t)
	createKV(t, s, "kv")

	tables, err := s.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"file_available", "kv", "sync_history"}, tables)
}

func TestColumns_MissingTable(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Columns(context.Background(), "nope")
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestPrimaryKey_CompositeOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTable(ctx, domain.TableDescriptor{
		Name:       "t",
		Columns:    []domain.ColumnDef{{Name: "a"}, {Name: "b"}, {Name: "c"}},
		PrimaryKey: []string{"c", "a"},
	}))

	pk, err := s.PrimaryKey(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, pk)

	require.NoError(t, s.CreateTable(ctx, domain.TableDescriptor{Name: "nokey", Columns: []domain.ColumnDef{{Name: "x"}}}))
	pk, err = s.PrimaryKey(ctx, "nokey")
	require.NoError(t, err)
	assert.Empty(t, pk)
}

func TestAddDropColumn_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createKV(t, s, "kv")

	added, err := s.AddColumn(ctx, "kv", "speed", "REAL")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddColumn(ctx, "kv", "speed", "REAL")
	require.NoError(t, err)
	assert.False(t, added)

	cols, err := s.Columns(ctx, "kv")
	require.NoError(t, err)
	assert.Equal(t, []string{"k", "v", "speed"}, columnNames(cols))
	assert.Equal(t, "REAL", cols[2].Type)

	dropped, err := s.DropColumn(ctx, "kv", "speed")
	require.NoError(t, err)
	assert.True(t, dropped)

	dropped, err = s.DropColumn(ctx, "kv", "speed")
	require.NoError(t, err)
	assert.False(t, dropped)

	cols, err = s.Columns(ctx, "kv")
	require.NoError(t, err)
	assert.Equal(t, []string{"k", "v"}, columnNames(cols))
}

func TestAddColumn_MissingTable(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddColumn(context.Background(), "nope", "x", "TEXT")
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestInsertTable_Chunked(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createKV(t, s, "kv")

	const n = 2500
	batch := domain.RowBatch{Columns: []string{"k", "v"}}
	for i := 0; i < n; i++ {
		batch.Rows = append(batch.Rows, []any{i, fmt.Sprintf("row-%d", i)})
	}

	var calls [][2]int
	got, err := s.InsertTable(ctx, "kv", batch,
		WithChunkSize(1000),
		WithProgress(func(done, total int) { calls = append(calls, [2]int{done, total}) }),
	)
	require.NoError(t, err)
	assert.Equal(t, n, got)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, calls)
	assert.Equal(t, int64(n), count(t, s, "kv"))

	res, err := s.SelectFrom(ctx, "kv", []string{"v"}, "k = 2499")
	require.NoError(t, err)
	require.Equal(t, 1, res.Len())
	assert.Equal(t, "row-2499", res.Value(0, "v"))
}

func TestInsertTable_ExceedsVariableLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const width = 40
	desc := domain.TableDescriptor{Name: "wide"}
	cols := make([]string, width)
	for i := range cols {
		cols[i] = fmt.Sprintf("c%d", i)
		desc.Columns = append(desc.Columns, domain.ColumnDef{Name: cols[i], Type: "INTEGER"})
	}
	require.NoError(t, s.CreateTable(ctx, desc))

	batch := domain.RowBatch{Columns: cols}
	for i := 0; i < 1000; i++ {
		row := make([]any, width)
		for j := range row {
			row[j] = i * j
		}
		batch.Rows = append(batch.Rows, row)
	}

	got, err := s.InsertTable(ctx, "wide", batch)
	require.NoError(t, err)
	assert.Equal(t, 1000, got)
	assert.Equal(t, int64(1000), count(t, s, "wide"))
}

func TestInsertTable_FailedChunkKeepsCommittedPrefix(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createKV(t, s, "kv")

	batch := domain.NewRowBatch([]string{"k", "v"},
		[]any{1, "a"}, []any{2, "b"},
		[]any{3, "c"}, []any{1, "dup"},
		[]any{5, "e"},
	)
	got, err := s.InsertTable(ctx, "kv", batch, WithChunkSize(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk 2/3")
	assert.Equal(t, 2, got)

	res, err := s.SelectFrom(ctx, "kv", []string{"k"}, "")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, res.Column("k"))
}

func TestInsertTable_Validation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createKV(t, s, "kv")

	tests := []struct {
		name  string
		table string
		batch domain.RowBatch
		opts  []InsertOption
	}{
		{"unknown column", "kv", domain.NewRowBatch([]string{"k", "nope"}, []any{1, 2}), nil},
		{"ragged row", "kv", domain.NewRowBatch([]string{"k", "v"}, []any{1}), nil},
		{"zero chunk size", "kv", domain.NewRowBatch([]string{"k"}, []any{1}), []InsertOption{WithChunkSize(0)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n, err := s.InsertTable(ctx, tc.table, tc.batch, tc.opts...)
			var verr *domain.ValidationError
			assert.ErrorAs(t, err, &verr)
			assert.Zero(t, n)
		})
	}

	_, err := s.InsertTable(ctx, "missing", domain.NewRowBatch([]string{"k"}, []any{1}))
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestInsertTable_EmptyBatch(t *testing.T) {
	s := newTestStore(t)
	createKV(t, s, "kv")

	called := false
	n, err := s.InsertTable(context.Background(), "kv", domain.RowBatch{Columns: []string{"k"}},
		WithProgress(func(int, int) { called = true }))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, called)
}

func TestUpsertTable_Convergence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createKV(t, s, "kv")

	n, err := s.UpsertTable(ctx, "kv", domain.NewRowBatch([]string{"k", "v"}, []any{1, "a"}))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.UpsertTable(ctx, "kv", domain.NewRowBatch([]string{"k", "v"}, []any{1, "b"}))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(1), count(t, s, "kv"))

	n, err = s.UpsertTable(ctx, "kv", domain.NewRowBatch([]string{"k", "v"}, []any{2, "c"}))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(2), count(t, s, "kv"))

	res, err := s.SelectFrom(ctx, "kv", []string{"v"}, "k = 1")
	require.NoError(t, err)
	assert.Equal(t, "b", res.Value(0, "v"))
}

func TestUpsertTable_CompositeKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTable(ctx, domain.TableDescriptor{
		Name: "stats",
		Columns: []domain.ColumnDef{
			{Name: "date", Type: "TEXT"}, {Name: "player", Type: "TEXT"}, {Name: "distance", Type: "REAL"},
		},
		PrimaryKey: []string{"date", "player"},
	}))

	batch := domain.NewRowBatch([]string{"date", "player", "distance"},
		[]any{"2024-03-01", "Ana", 5400.5},
		[]any{"2024-03-01", "Ben", 6100.0},
		[]any{"2024-03-01", "Ana", 5500.0},
	)
	n, err := s.UpsertTable(ctx, "stats", batch)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, int64(2), count(t, s, "stats"))

	res, err := s.SelectFrom(ctx, "stats", []string{"distance"}, "player = 'Ana'")
	require.NoError(t, err)
	assert.Equal(t, 5500.0, res.Value(0, "distance"))
}

func TestUpsertTable_KeyOnlyRowIsNoOp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createKV(t, s, "kv")
	_, err := s.InsertTable(ctx, "kv", domain.NewRowBatch([]string{"k", "v"}, []any{1, "keep"}))
	require.NoError(t, err)

	n, err := s.UpsertTable(ctx, "kv", domain.NewRowBatch([]string{"k"}, []any{1}, []any{2}))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err := s.SelectFrom(ctx, "kv", nil, "")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1), "keep"}, {int64(2), nil}}, res.Rows)
}

func TestUpsertTable_NoPrimaryKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTable(ctx, domain.TableDescriptor{Name: "log", Columns: []domain.ColumnDef{{Name: "msg"}}}))

	n, err := s.UpsertTable(ctx, "log", domain.NewRowBatch([]string{"msg"}, []any{"x"}))
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Zero(t, n)

	_, err = s.UpdateTable(ctx, "log", domain.NewRowBatch([]string{"msg"}, []any{"x"}))
	assert.ErrorAs(t, err, &verr)
}

func TestUpsertTable_HaltsAtFailingRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTable(ctx, domain.TableDescriptor{
		Name:       "strict",
		Columns:    []domain.ColumnDef{{Name: "k", Type: "INTEGER"}, {Name: "v", Type: "TEXT NOT NULL"}},
		PrimaryKey: []string{"k"},
	}))

	batch := domain.NewRowBatch([]string{"k", "v"},
		[]any{1, "a"}, []any{2, nil}, []any{3, "c"},
	)
	n, err := s.UpsertTable(ctx, "strict", batch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(1), count(t, s, "strict"))
}

func TestUpdateTable_PartialColumns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTable(ctx, domain.TableDescriptor{
		Name:       "t",
		Columns:    []domain.ColumnDef{{Name: "id", Type: "INTEGER"}, {Name: "a", Type: "TEXT"}, {Name: "b", Type: "TEXT"}},
		PrimaryKey: []string{"id"},
	}))
	_, err := s.InsertTable(ctx, "t", domain.NewRowBatch([]string{"id", "a", "b"}, []any{1, "a1", "b1"}))
	require.NoError(t, err)

	n, err := s.UpdateTable(ctx, "t", domain.NewRowBatch([]string{"id", "a", "b"}, []any{1, "a2", "b2"}), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	res, err := s.SelectFrom(ctx, "t", []string{"a", "b"}, "id = 1")
	require.NoError(t, err)
	assert.Equal(t, "a2", res.Value(0, "a"))
	assert.Equal(t, "b1", res.Value(0, "b"))

	n, err = s.UpdateTable(ctx, "t", domain.NewRowBatch([]string{"id", "a", "b"}, []any{1, "a3", "b3"}))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	res, err = s.SelectFrom(ctx, "t", nil, "id = 1")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), "a3", "b3"}, res.Rows[0])
}

func TestUpdateTable_NoMatchIsSilent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createKV(t, s, "kv")
	_, err := s.InsertTable(ctx, "kv", domain.NewRowBatch([]string{"k", "v"}, []any{1, "a"}))
	require.NoError(t, err)

	n, err := s.UpdateTable(ctx, "kv", domain.NewRowBatch([]string{"k", "v"}, []any{99, "z"}))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	res, err := s.SelectFrom(ctx, "kv", nil, "")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1), "a"}}, res.Rows)
}

func TestUpdateTable_Validation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createKV(t, s, "kv")

	var verr *domain.ValidationError
	_, err := s.UpdateTable(ctx, "kv", domain.NewRowBatch([]string{"v"}, []any{"x"}))
	assert.ErrorAs(t, err, &verr, "missing key column")

	_, err = s.UpdateTable(ctx, "kv", domain.NewRowBatch([]string{"k", "v"}, []any{1, "x"}), "other")
	assert.ErrorAs(t, err, &verr, "set column outside the batch")
}

func TestSelectFrom(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createKV(t, s, "kv")
	_, err := s.InsertTable(ctx, "kv", domain.NewRowBatch([]string{"k", "v"},
		[]any{1, "a"}, []any{2, "b"}, []any{3, "c"}))
	require.NoError(t, err)

	res, err := s.SelectFrom(ctx, "kv", nil, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"k", "v"}, res.Columns)
	assert.Equal(t, 3, res.Len())

	res, err = s.SelectFrom(ctx, "kv", []string{"v"}, "k >= 2")
	require.NoError(t, err)
	assert.Equal(t, []any{"b", "c"}, res.Column("v"))

	res, err = s.SelectFrom(ctx, "kv", []string{"DISTINCT v"}, "k > 10")
	require.NoError(t, err)
	assert.Zero(t, res.Len())

	_, err = s.SelectFrom(ctx, "missing", nil, "")
	assert.Error(t, err)
}

func TestMakeJoin_Tagging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTable(ctx, domain.TableDescriptor{
		Name: "main", Columns: []domain.ColumnDef{{Name: "a", Type: "INTEGER"}, {Name: "b", Type: "TEXT"}},
	}))
	require.NoError(t, s.CreateTable(ctx, domain.TableDescriptor{
		Name: "joined", Columns: []domain.ColumnDef{{Name: "c", Type: "INTEGER"}, {Name: "d", Type: "TEXT"}},
	}))
	_, err := s.InsertTable(ctx, "main", domain.NewRowBatch([]string{"a", "b"}, []any{1, "x"}, []any{2, "y"}))
	require.NoError(t, err)
	_, err = s.InsertTable(ctx, "joined", domain.NewRowBatch([]string{"c", "d"}, []any{1, "p"}))
	require.NoError(t, err)

	spec := domain.JoinSpec{
		Main: "main",
		Joins: []domain.JoinClause{{
			Table: "joined", Type: domain.JoinLeft,
			On: []domain.JoinCondition{{Column: "c", OtherTable: "main", OtherColumn: "a"}},
		}},
	}
	res, err := s.MakeJoin(ctx, spec)
	require.NoError(t, err)

	assert.Equal(t, []domain.ColumnTag{
		{Table: "main", Column: "a"},
		{Table: "main", Column: "b"},
		{Table: "joined", Column: "c"},
		{Table: "joined", Column: "d"},
	}, res.Columns)
	assert.Equal(t, [][]any{
		{int64(1), "x", int64(1), "p"},
		{int64(2), "y", nil, nil},
	}, res.Rows)

	joined := res.Table("joined")
	assert.Equal(t, []string{"c", "d"}, joined.Columns)
}

func TestMakeJoin_SameColumnNames(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createKV(t, s, "left_kv")
	createKV(t, s, "right_kv")
	_, err := s.InsertTable(ctx, "left_kv", domain.NewRowBatch([]string{"k", "v"}, []any{1, "l"}))
	require.NoError(t, err)
	_, err = s.InsertTable(ctx, "right_kv", domain.NewRowBatch([]string{"k", "v"}, []any{1, "r"}))
	require.NoError(t, err)

	res, err := s.MakeJoin(ctx, domain.JoinSpec{
		Main: "left_kv",
		Joins: []domain.JoinClause{{
			Table: "right_kv", Type: domain.JoinInner,
			On: []domain.JoinCondition{{Column: "k", OtherTable: "left_kv", OtherColumn: "k"}},
		}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Len())
	assert.Equal(t, "l", res.Rows[0][res.Index("left_kv", "v")])
	assert.Equal(t, "r", res.Rows[0][res.Index("right_kv", "v")])
}

func TestMakeJoin_MissingTable(t *testing.T) {
	s := newTestStore(t)
	createKV(t, s, "kv")

	_, err := s.MakeJoin(context.Background(), domain.JoinSpec{
		Main: "kv",
		Joins: []domain.JoinClause{{
			Table: "ghost", Type: domain.JoinInner,
			On: []domain.JoinCondition{{Column: "k", OtherTable: "kv", OtherColumn: "k"}},
		}},
	})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, nf.Message, "ghost")
}

func TestConcurrentWriters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createKV(t, s, "kv")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			batch := domain.RowBatch{Columns: []string{"k", "v"}}
			for i := 0; i < 50; i++ {
				batch.Rows = append(batch.Rows, []any{w*1000 + i, "x"})
			}
			_, err := s.InsertTable(ctx, "kv", batch, WithChunkSize(10))
			errs <- err
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int64(400), count(t, s, "kv"))
}
