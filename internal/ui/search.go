package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) enterSearchMode() tea.Cmd {
	m.searchActive = true
	m.pendingKey = ""
	if m.searchQuery != "" {
		m.searchInput.SetValue(m.searchQuery)
		m.searchInput.CursorEnd()
	} else {
		m.searchInput.SetValue("")
	}
	return m.searchInput.Focus()
}

func (m *Model) exitSearchMode() {
	m.searchActive = false
	m.searchInput.Blur()
}

func (m *Model) clearSearch() {
	m.searchQuery = ""
	m.searchMatches = nil
	m.searchIndex = -1
	m.err = nil
}

func (m *Model) searchStatusLine() string {
	if m.searchQuery == "" {
		return ""
	}
	total := len(m.searchMatches)
	if total == 0 || m.searchIndex < 0 {
		return fmt.Sprintf("/%s (0/0)", m.searchQuery)
	}
	return fmt.Sprintf("/%s (%d/%d)", m.searchQuery, m.searchIndex+1, total)
}

func (m *Model) performSearch(query string) {
	query = strings.TrimSpace(query)
	m.searchQuery = query
	m.searchMatches = nil
	if m.tree != nil {
		m.searchMatches = m.tree.Search(query)
	}
	if len(m.searchMatches) == 0 {
		m.searchIndex = -1
		m.err = fmt.Errorf("no match for %q", query)
		return
	}
	m.searchIndex = 0
	m.err = nil
	m.gotoSearchMatch()
}

func (m *Model) nextSearchMatch() {
	if len(m.searchMatches) == 0 {
		return
	}
	m.searchIndex = (m.searchIndex + 1) % len(m.searchMatches)
	m.err = nil
	m.gotoSearchMatch()
}

func (m *Model) previousSearchMatch() {
	if len(m.searchMatches) == 0 {
		return
	}
	if m.searchIndex <= 0 {
		m.searchIndex = len(m.searchMatches) - 1
	} else {
		m.searchIndex--
	}
	m.err = nil
	m.gotoSearchMatch()
}

// gotoSearchMatch expands every folder above the hit and selects it.
func (m *Model) gotoSearchMatch() {
	if m.tree == nil || m.searchIndex < 0 || m.searchIndex >= len(m.searchMatches) {
		return
	}
	path := m.searchMatches[m.searchIndex]
	if m.tree.Find(path) == nil {
		return
	}
	if ancestors := m.tree.Ancestors(path); len(ancestors) > 0 {
		m.store.Expanded.AddAll(ancestors...)
	}
	m.store.Selected.Set(path)
}
