package commands

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pearpc/devrt/pkg/trace"
)

func createTestTraceFile(t *testing.T, events []trace.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.trace")

	logger, err := trace.NewFileLogger(path)
	require.NoError(t, err)
	for _, e := range events {
		logger.Log(e)
	}
	require.NoError(t, logger.Close())
	return path
}

var ts = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func sampleEvents() []trace.Event {
	return []trace.Event{
		{Timestamp: ts, Category: trace.CategoryType, Op: trace.OpRegister, TypeName: "via-timer", Related: "sys-bus-device"},
		{Timestamp: ts, Category: trace.CategoryDevice, Op: trace.OpRealize, TypeName: "via-timer", ObjectID: "0b7e4c1a-9f3d-4e55-8a61-2f0c9d1e7b42"},
		{Timestamp: ts.Add(time.Millisecond), VirtualNs: 21702, Category: trace.CategoryTimer, Op: trace.OpTimerFire,
			Timer: &trace.TimerEvent{TimerID: 1, ExpiresNs: 21702, Seq: 3, LateNs: 1500}},
		{Timestamp: ts.Add(time.Millisecond), VirtualNs: 21702, Category: trace.CategoryIRQ, Op: trace.OpIRQRaise,
			IRQ: &trace.IRQEvent{Line: 18, Level: true}},
		{Timestamp: ts.Add(2 * time.Millisecond), Category: trace.CategoryInput, Op: trace.OpKey,
			Input: &trace.InputEvent{QCode: 31, Down: true, Handlers: 1}},
		{Timestamp: ts.Add(3 * time.Millisecond), Category: trace.CategoryDevice, Op: trace.OpRealize, TypeName: "cuda",
			Error: &trace.ErrorEventData{Message: "no scheduler", Context: "realize"}},
	}
}

func TestViewShowsAllEvents(t *testing.T) {
	path := createTestTraceFile(t, sampleEvents())

	var buf bytes.Buffer
	require.NoError(t, RunView(path, ViewFilter{}, &buf))
	out := buf.String()

	assert.Contains(t, out, "2026-03-02T09:30:00.000000Z [vt:0ns] TYPE   REGISTER via-timer")
	assert.Contains(t, out, "  Related: sys-bus-device")
	assert.Contains(t, out, "REALIZE via-timer [obj:0b7e4c1a]")
	assert.Contains(t, out, "[vt:21.702us] TIMER  TIMER_FIRE")
	assert.Contains(t, out, "  Timer: 1  Expires: 21.702us  Seq: 3  Late: 1.500us")
	assert.Contains(t, out, "  Line: 18  Level: true")
	assert.Contains(t, out, "  QCode: 31 (down)  Handlers: 1")
	assert.Contains(t, out, "  Error: no scheduler")
	assert.Contains(t, out, "  Context: realize")
}

func TestViewFilters(t *testing.T) {
	path := createTestTraceFile(t, sampleEvents())

	cat := trace.CategoryDevice
	var buf bytes.Buffer
	require.NoError(t, RunView(path, ViewFilter{Category: &cat, TypeName: "cuda"}, &buf))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "REALIZE"))
	assert.Contains(t, out, "cuda")
	assert.NotContains(t, out, "TIMER_FIRE")
}

func TestViewMissingFile(t *testing.T) {
	err := RunView(filepath.Join(t.TempDir(), "missing.trace"), ViewFilter{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseFlags(t *testing.T) {
	c, err := ParseCategoryFlag("timer")
	require.NoError(t, err)
	assert.Equal(t, trace.CategoryTimer, c)

	_, err = ParseCategoryFlag("wire")
	assert.Error(t, err)

	op, err := ParseOpFlag("timer-fire")
	require.NoError(t, err)
	assert.Equal(t, trace.OpTimerFire, op)

	op, err = ParseOpFlag("MMIO_WRITE")
	require.NoError(t, err)
	assert.Equal(t, trace.OpMMIOWrite, op)

	_, err = ParseOpFlag("frame")
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	path := createTestTraceFile(t, sampleEvents())

	stats, err := CollectStats(path)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.TotalEvents)
	assert.Equal(t, 2, stats.EventsByOp[trace.OpRealize])
	assert.Equal(t, 3, stats.EventsByCategory[trace.CategoryDevice]+stats.EventsByCategory[trace.CategoryType])
	assert.Equal(t, 2, stats.EventsByType["via-timer"])
	assert.Len(t, stats.Objects, 1)
	assert.Equal(t, 1, stats.IRQRaises[18])
	assert.Equal(t, int64(1500), stats.MaxLateNs)
	assert.Equal(t, int64(21702), stats.VirtualEnd)
	assert.Equal(t, 1, stats.Errors)

	var buf bytes.Buffer
	require.NoError(t, RunStats(path, &buf))
	out := buf.String()
	assert.Contains(t, out, "Total Events: 6")
	assert.Contains(t, out, "DEVICE:")
	assert.Contains(t, out, "TIMER_FIRE:")
	assert.Contains(t, out, "via-timer:")
	assert.Contains(t, out, "line 18")
	assert.Contains(t, out, "Max Timer Lateness: 1.500us")
	assert.Contains(t, out, "Errors: 1")
}

func TestStatsEmptyFile(t *testing.T) {
	path := createTestTraceFile(t, nil)

	var buf bytes.Buffer
	require.NoError(t, RunStats(path, &buf))
	assert.Contains(t, buf.String(), "Total Events: 0")
	assert.NotContains(t, buf.String(), "Time Range")
}

func TestExportJSONL(t *testing.T) {
	path := createTestTraceFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out.jsonl")
	require.NoError(t, RunExport(path, "jsonl", out))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 6)
	assert.Equal(t, "TYPE", lines[0]["Category"])
	assert.Equal(t, "REGISTER", lines[0]["Op"])
	assert.Equal(t, "TIMER_FIRE", lines[2]["Op"])
	assert.NotNil(t, lines[2]["Timer"])
}

func TestExportCSV(t *testing.T) {
	path := createTestTraceFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, RunExport(path, "csv", out))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 7)
	assert.Equal(t, "virtual_ns", rows[0][1])
	assert.Equal(t, []string{"21702", "TIMER", "TIMER_FIRE"}, rows[3][1:4])
	assert.Equal(t, "no scheduler", rows[6][7])
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestTraceFile(t, sampleEvents())
	err := RunExport(path, "xml", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}
