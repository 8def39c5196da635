package ui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyaoi/sizetree/internal/scan"
	"github.com/kyaoi/sizetree/internal/store"
	"github.com/kyaoi/sizetree/internal/tree"
)

// sampleNode builds:
//
//	/r
//	  /r/docs (50)
//	    /r/docs/big.pdf (40)
//	    /r/docs/notes.txt (10)
//	  /r/a.txt (10)
//	  /r/empty
func sampleNode() *scan.Node {
	docs := &scan.Node{Name: "docs", Path: "/r/docs", IsDir: true, Children: []*scan.Node{
		{Name: "big.pdf", Path: "/r/docs/big.pdf", Size: 40, FileCount: 1},
		{Name: "notes.txt", Path: "/r/docs/notes.txt", Size: 10, FileCount: 1},
	}}
	docs.Recompute()
	root := &scan.Node{Name: "r", Path: "/r", IsDir: true, Children: []*scan.Node{
		docs,
		{Name: "a.txt", Path: "/r/a.txt", Size: 10, FileCount: 1},
		{Name: "empty", Path: "/r/empty", IsDir: true},
	}}
	root.Recompute()
	return root
}

type harness struct {
	m      *Model
	store  *store.Store
	opened []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{store: store.New()}
	h.m = NewModel(State{RootPath: "/r", DisplayRoot: "r", Sort: tree.SortBySize}, Deps{
		Store: h.store,
		Open: func(p string) error {
			h.opened = append(h.opened, p)
			return nil
		},
	})
	t.Cleanup(h.m.Close)
	h.m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	h.m.Update(scanDoneMsg{path: "/r", node: sampleNode()})
	return h
}

func (h *harness) press(keys ...string) {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		h.m.Update(msg)
	}
}

func (h *harness) selected() string {
	path, _ := h.store.Selected.Get()
	return path
}

func (h *harness) visible() []string {
	out := make([]string, len(h.m.flatTree))
	for i, line := range h.m.flatTree {
		out[i] = line.Node.Path
	}
	return out
}

func TestModel_InitialScanSelectsAndExpandsRoot(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "/r", h.selected())
	assert.True(t, h.store.Expanded.Has("/r"))
	assert.Equal(t, []string{"/r", "/r/docs", "/r/a.txt", "/r/empty"}, h.visible())
	assert.Equal(t, 0, h.m.cursor)
}

func TestModel_Navigation(t *testing.T) {
	h := newHarness(t)

	h.press("j")
	assert.Equal(t, "/r/docs", h.selected())

	h.press("l")
	assert.True(t, h.store.Expanded.Has("/r/docs"))
	assert.Len(t, h.visible(), 6)

	h.press("l")
	assert.Equal(t, "/r/docs/big.pdf", h.selected())

	h.press("h")
	assert.Equal(t, "/r/docs", h.selected())

	h.press("h")
	assert.False(t, h.store.Expanded.Has("/r/docs"))

	h.press("h")
	assert.Equal(t, "/r", h.selected())

	h.press("G")
	assert.Equal(t, "/r/empty", h.selected())

	h.press("g", "g")
	assert.Equal(t, "/r", h.selected())

	h.press("k")
	assert.Equal(t, "/r", h.selected(), "clamped at the top")
}

func TestModel_SpaceToggles(t *testing.T) {
	h := newHarness(t)
	h.press("j", "space")
	assert.True(t, h.store.Expanded.Has("/r/docs"))
	h.press("space")
	assert.False(t, h.store.Expanded.Has("/r/docs"))
}

func TestModel_ReactsToExternalStoreChanges(t *testing.T) {
	h := newHarness(t)

	h.store.Expanded.Add("/r/docs")
	h.store.Selected.Set("/r/docs/notes.txt")
	h.m.Update(nil)

	assert.Len(t, h.visible(), 6)
	assert.Equal(t, h.m.indexForPath("/r/docs/notes.txt"), h.m.cursor)

	h.store.Expanded.Delete("/r/docs")
	h.m.Update(nil)

	assert.Equal(t, "/r/docs", h.selected(), "hidden selection moves to the visible ancestor")
}

func TestModel_ClearedSelectionFallsBackToRoot(t *testing.T) {
	h := newHarness(t)
	h.press("j")

	h.store.Selected.Clear()
	h.m.Update(nil)

	assert.Equal(t, "/r", h.selected())
}

func TestModel_CollapseAllAndExpandSubtree(t *testing.T) {
	h := newHarness(t)

	h.press("E")
	assert.Equal(t, []string{"/r", "/r/docs", "/r/empty"}, h.store.Expanded.Get().Paths())

	h.store.Selected.Set("/r/docs/big.pdf")
	h.press("c")
	assert.Equal(t, []string{"/r"}, h.store.Expanded.Get().Paths())
	assert.Equal(t, "/r/docs", h.selected())
}

func TestModel_Search(t *testing.T) {
	h := newHarness(t)

	h.press("/", "n", "o", "t", "e", "s", "enter")
	assert.Equal(t, "/r/docs/notes.txt", h.selected())
	assert.True(t, h.store.Expanded.Has("/r/docs"))
	assert.Equal(t, "/notes (1/1)", h.m.searchStatusLine())

	h.press("/")
	h.m.searchInput.SetValue("txt")
	h.press("enter")
	require.Len(t, h.m.searchMatches, 2)
	assert.Equal(t, "/r/docs/notes.txt", h.selected())
	h.press("n")
	assert.Equal(t, "/r/a.txt", h.selected())
	h.press("N")
	assert.Equal(t, "/r/docs/notes.txt", h.selected())

	h.press("/")
	h.m.searchInput.SetValue("zzz")
	h.press("enter")
	assert.Error(t, h.m.err)
	assert.Empty(t, h.m.searchMatches)
}

func TestModel_OpenFile(t *testing.T) {
	h := newHarness(t)

	h.store.Selected.Set("/r/a.txt")
	h.m.Update(nil)
	h.press("o")
	h.press("enter")

	assert.Equal(t, []string{"/r/a.txt", "/r/a.txt"}, h.opened)
}

func TestModel_OpenFailureIsShown(t *testing.T) {
	h := newHarness(t)
	h.m.open = func(string) error { return errors.New("no opener") }

	h.press("o")

	require.Error(t, h.m.err)
	assert.Contains(t, ansi.Strip(h.m.View()), "no opener")
}

func TestModel_ToggleSort(t *testing.T) {
	h := newHarness(t)

	h.press("s")
	assert.Equal(t, tree.SortByName, h.m.sortMode)
	assert.Equal(t, []string{"/r", "/r/docs", "/r/empty", "/r/a.txt"}, h.visible())
}

func TestModel_RescanReplacesSubtree(t *testing.T) {
	h := newHarness(t)

	fresh := &scan.Node{Name: "empty", Path: "/r/empty", IsDir: true, Children: []*scan.Node{
		{Name: "disk.img", Path: "/r/empty/disk.img", Size: 500, FileCount: 1},
	}}
	fresh.Recompute()
	h.m.Update(scanDoneMsg{path: "/r/empty", node: fresh})

	assert.Equal(t, int64(560), h.m.tree.Root().Size)
	assert.Equal(t, "/r/empty", h.visible()[1])
}

func TestModel_ScanErrors(t *testing.T) {
	h := newHarness(t)

	h.m.Update(scanDoneMsg{path: "/r/docs", err: context.Canceled})
	assert.NoError(t, h.m.err)

	h.m.Update(scanDoneMsg{path: "/r/docs", err: os.ErrPermission})
	assert.ErrorIs(t, h.m.err, os.ErrPermission)
}

func TestModel_DirChangeSchedulesRescan(t *testing.T) {
	h := newHarness(t)

	assert.NotNil(t, h.m.handleDirChange("/r/docs"))
	assert.Nil(t, h.m.handleDirChange("/r/a.txt"))
	assert.Nil(t, h.m.handleDirChange("/elsewhere"))
}

func TestModel_ScanCmdScansDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.bin"), make([]byte, 64), 0o644))

	m := NewModel(State{RootPath: root}, Deps{})
	defer m.Close()

	msg := m.scanCmd(root)()
	done, ok := msg.(scanDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)
	assert.Equal(t, int64(64), done.node.Size)

	m.Update(done)
	assert.Equal(t, root, m.rootPath)
	sel, _ := m.store.Selected.Get()
	assert.Equal(t, root, sel)
}

func TestModel_PlaceholderBeforeScan(t *testing.T) {
	m := NewModel(State{RootPath: "/r", DisplayRoot: "r"}, Deps{})
	defer m.Close()

	m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	m.Update(scanProgressMsg{files: 1200})

	view := ansi.Strip(m.View())
	assert.Contains(t, view, "Scanning r")
	assert.Contains(t, view, "1,200 files")
}

func TestModel_ViewShowsTreeAndDetails(t *testing.T) {
	h := newHarness(t)
	h.press("j")

	view := ansi.Strip(h.m.View())
	assert.Contains(t, view, "docs/")
	assert.Contains(t, view, "Largest entries")
	assert.Contains(t, view, "sort: size")

	h.press("t")
	assert.False(t, h.m.detailsVisible)
	assert.NotContains(t, ansi.Strip(h.m.View()), "Largest entries")

	h.press("?")
	assert.Contains(t, ansi.Strip(h.m.View()), "Help")
	h.press("esc")
	assert.False(t, h.m.showHelp)
}

func TestModel_QuitClosesSubscriptions(t *testing.T) {
	h := newHarness(t)

	h.press("q")
	require.Error(t, h.m.ctx.Err())

	h.store.Expanded.Add("/r/docs")
	assert.False(t, h.m.dirty)
}

func TestFormatTreeLine(t *testing.T) {
	line := tree.Line{Node: &scan.Node{Name: "docs", Path: "/r/docs", IsDir: true, Size: 2048}, Depth: 1}

	got := formatTreeLine(line, 4096, 40)
	assert.True(t, strings.HasPrefix(got, "  + docs/"))
	assert.True(t, strings.HasSuffix(got, "2.0 KiB  50.0%"))
	assert.Equal(t, 40, len([]rune(got)))

	line.Expanded = true
	line.Node.Err = "denied"
	assert.Contains(t, formatTreeLine(line, 0, 40), "- docs/ !")
}

func TestDetailsMarkdown(t *testing.T) {
	dir := &scan.Node{Name: "a|b", Path: "/r/a|b", IsDir: true}
	for i := 0; i < topEntries+2; i++ {
		dir.Children = append(dir.Children, &scan.Node{Name: "f" + string(rune('a'+i)), Size: int64(i), FileCount: 1})
	}
	dir.Recompute()

	doc := detailsMarkdown(dir, dir.Size*2, "r/a|b")
	assert.Contains(t, doc, `# a\|b/`)
	assert.Contains(t, doc, "| Files | 12 |")
	assert.Contains(t, doc, "| Share of parent | 50.0% |")
	assert.Contains(t, doc, "## Largest entries")
	assert.Contains(t, doc, "2 more entries")
	assert.Less(t, strings.Index(doc, "| fl |"), strings.Index(doc, "| fk |"))

	file := detailsMarkdown(&scan.Node{Name: "x", Size: 5, FileCount: 1, Err: "oops"}, 0, "r/x")
	assert.NotContains(t, file, "Largest entries")
	assert.NotContains(t, file, "Files")
	assert.Contains(t, file, "> oops")
}

func TestComposeDisplayPath(t *testing.T) {
	assert.Equal(t, "r/", composeDisplayPath("r", "/r", "/r"))
	assert.Equal(t, "r/docs/a.txt", composeDisplayPath("r", "/r", "/r/docs/a.txt"))
	assert.Equal(t, "/other", composeDisplayPath("r", "/r", "/other"))
}
