package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportProgress(t *testing.T) {
	p := NewImportProgress([]string{"users", "transactions", "social_media", "products"})

	p.Update(TableStartedMsg{Name: "users"})
	p.Update(TableDoneMsg{Name: "users", Rows: 3})
	p.Update(TableStartedMsg{Name: "transactions"})
	p.Update(TableDoneMsg{Name: "transactions", Err: errors.New("bad row")})
	p.Update(TableDoneMsg{Name: "social_media", Missing: true})
	p.Update(TableDoneMsg{Name: "unknown", Rows: 99})

	tables := p.Tables()
	require.Len(t, tables, 4)
	assert.Equal(t, TableDone, tables[0].Status)
	assert.Equal(t, 3, tables[0].Rows)
	assert.Equal(t, TableFailed, tables[1].Status)
	assert.Equal(t, TableMissing, tables[2].Status)
	assert.Equal(t, TablePending, tables[3].Status)

	view := p.View()
	assert.Contains(t, view, "3 rows")
	assert.Contains(t, view, "bad row")
	assert.Contains(t, view, "no file")
	assert.NotContains(t, view, "Imported")

	_, cmd := p.Update(ImportFinishedMsg{})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, p.View(), "Imported 3 rows from 1 tables")
	assert.Contains(t, p.View(), "1 failed")
}
