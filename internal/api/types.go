package api

import (
	"gps-report/internal/cloudsync"
	"gps-report/internal/domain"
	"gps-report/internal/store"
)

// ResultSet is a tabular result with a flat column namespace.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Column describes one column of a table.
type Column struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	NotNull    bool    `json:"not_null"`
	Default    *string `json:"default,omitempty"`
	PKPosition int     `json:"pk_position,omitempty"`
}

// TableDetail is the description of one store table.
type TableDetail struct {
	Name       string   `json:"name"`
	Columns    []Column `json:"columns"`
	PrimaryKey []string `json:"primary_key"`
}

// TableList is the response of GET /tables.
type TableList struct {
	Tables []string `json:"tables"`
}

// Filters holds the selector options of the dashboard.
type Filters struct {
	Categories []string `json:"categories"`
	Types      []string `json:"types"`
	Dates      []string `json:"dates"`
	From       string   `json:"from"`
	To         string   `json:"to"`
	Players    []string `json:"players"`
}

// SyncHistory is one page of sync runs.
type SyncHistory struct {
	Runs          []domain.SyncRecord `json:"runs"`
	NextPageToken string              `json:"next_page_token,omitempty"`
}

// RemoteListing is the content of the sync remote directory.
type RemoteListing struct {
	RemoteDir string              `json:"remote_dir"`
	Files     []domain.RemoteFile `json:"files"`
}

func resultToAPI(res *store.Result) ResultSet {
	rows := res.Rows
	if rows == nil {
		rows = [][]any{}
	}
	return ResultSet{Columns: res.Columns, Rows: rows}
}

func tableDetailToAPI(name string, cols []domain.ColumnInfo, pk []string) TableDetail {
	out := TableDetail{Name: name, Columns: make([]Column, len(cols)), PrimaryKey: pk}
	for i, c := range cols {
		out.Columns[i] = Column{
			Name:       c.Name,
			Type:       c.Type,
			NotNull:    c.NotNull,
			Default:    c.Default,
			PKPosition: c.PKPosition,
		}
	}
	if out.PrimaryKey == nil {
		out.PrimaryKey = []string{}
	}
	return out
}

// RemoteTree is every item under the sync remote directory.
type RemoteTree struct {
	RemoteDir string                `json:"remote_dir"`
	Entries   []cloudsync.TreeEntry `json:"entries"`
}

// DeleteResult reports whether a remote item existed before the delete.
type DeleteResult struct {
	Path  string `json:"path"`
	Found bool   `json:"found"`
}
