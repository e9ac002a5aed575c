package trace

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestFileLoggerCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.trace")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("trace file was not created")
	}
}

func TestFileLoggerWritesCBOR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.trace")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	logger.Log(Event{
		Timestamp: time.Now(),
		VirtualNs: 5_000_000,
		Category:  CategoryTimer,
		Op:        OpTimerFire,
		TypeName:  "via-timer",
		Timer:     &TimerEvent{TimerID: 3, ExpiresNs: 4_900_000, LateNs: 100_000},
	})
	logger.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read trace file: %v", err)
	}

	decoded, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Op != OpTimerFire {
		t.Errorf("Op = %v, want %v", decoded.Op, OpTimerFire)
	}
	if decoded.Timer == nil || decoded.Timer.TimerID != 3 {
		t.Fatalf("Timer payload = %+v, want TimerID 3", decoded.Timer)
	}
	if decoded.Timer.LateNs != 100_000 {
		t.Errorf("LateNs = %d, want 100000", decoded.Timer.LateNs)
	}
}

func TestFileLoggerIgnoresLogAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.trace")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close returned %v, want nil", err)
	}

	logger.Log(Event{Category: CategoryType, Op: OpRegister})

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("file size = %d, want 0", info.Size())
	}
}

func TestFileLoggerConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.trace")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	const writers, perWriter = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				logger.Log(Event{Category: CategoryTimer, Op: OpTimerArm, Timer: &TimerEvent{TimerID: uint64(w)}})
			}
		}(w)
	}
	wg.Wait()
	logger.Close()

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		if _, err := reader.Next(); err != nil {
			break
		}
		count++
	}
	if count != writers*perWriter {
		t.Errorf("read %d events, want %d", count, writers*perWriter)
	}
}

type failingWriter struct{ closed bool }

func (w *failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func (w *failingWriter) Close() error {
	w.closed = true
	return nil
}

func TestStreamLoggerCountsDroppedEvents(t *testing.T) {
	w := &failingWriter{}
	logger := NewStreamLogger(w)

	logger.Log(Event{Category: CategoryIRQ, Op: OpIRQRaise, IRQ: &IRQEvent{Line: 18, Level: true}})
	logger.Log(Event{Category: CategoryIRQ, Op: OpIRQLower, IRQ: &IRQEvent{Line: 18}})

	if got := logger.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !w.closed {
		t.Error("Close did not close the writer")
	}

	logger.Log(Event{Category: CategoryIRQ, Op: OpIRQRaise})
	if got := logger.Dropped(); got != 2 {
		t.Errorf("Dropped() after Close = %d, want 2", got)
	}
}

func TestMarshalIsDeterministic(t *testing.T) {
	e := Event{
		Timestamp: time.Unix(0, 1_700_000_000_123_456_789),
		Category:  CategoryDevice,
		Op:        OpMMIOWrite,
		TypeName:  "via-timer",
		MMIO:      &MMIOEvent{Addr: 0xf3016a00, Size: 1, Value: 0x10},
	}
	a, err := Marshal(e)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	b, _ := Marshal(e)
	if !bytes.Equal(a, b) {
		t.Error("Marshal produced different bytes for the same event")
	}

	got, err := Unmarshal(a)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.MMIO == nil || got.MMIO.Addr != 0xf3016a00 {
		t.Errorf("MMIO = %+v, want Addr 0xf3016a00", got.MMIO)
	}
}
