// Package archive appends finished-game records to hourly rotated,
// zstd-compressed JSONL files.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/example/hexsettlers/internal/game"
)

// Record is one finished game.
type Record struct {
	RoomID     string         `json:"roomId"`
	FinishedAt time.Time      `json:"finishedAt"`
	Settings   game.Settings  `json:"settings"`
	Winner     string         `json:"winner"`
	WinnerName string         `json:"winnerName"`
	Players    []*game.Player `json:"players"`
	Stats      game.Stats     `json:"stats"`
	Log        []string       `json:"log"`
}

// NewRecord captures g. It must be called while g is not being mutated; the
// record shares no memory with g afterwards.
func NewRecord(roomID string, g *game.Game, at time.Time) Record {
	r := Record{
		RoomID:     roomID,
		FinishedAt: at.UTC(),
		Settings:   g.Settings(),
		Winner:     g.Winner(),
		Stats:      g.Snapshot().Stats,
		Log:        append([]string(nil), g.Logs()...),
	}
	collected := make(map[string]int, len(r.Stats.ResourceCollected))
	for id, n := range r.Stats.ResourceCollected {
		collected[id] = n
	}
	r.Stats.ResourceCollected = collected
	if p := g.Player(r.Winner); p != nil {
		r.WinnerName = p.Name
	}
	for _, p := range g.Players() {
		cp := *p
		cp.Resources = p.Resources.Clone()
		cp.Cards = append([]game.Card(nil), p.Cards...)
		r.Players = append(r.Players, &cp)
	}
	return r
}

// Writer appends records to games-<hour>.jsonl.zst under dir. Each file
// holds one zstd frame per writer session, so reopening an hour appends.
type Writer struct {
	dir string
	now func() time.Time

	mu  sync.Mutex
	seg *segment
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// Write appends rec to the file for the current hour and flushes it, so a
// record is durable once Write returns.
func (w *Writer) Write(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if w.seg == nil || w.seg.hour != hour {
		if err := w.closeSegment(); err != nil {
			return err
		}
		seg, err := openSegment(w.dir, hour)
		if err != nil {
			return err
		}
		w.seg = seg
	}
	return w.seg.append(rec)
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeSegment()
}

func (w *Writer) closeSegment() error {
	if w.seg == nil {
		return nil
	}
	err := w.seg.close()
	w.seg = nil
	return err
}

// segment is one open hourly file.
type segment struct {
	hour string
	file *os.File
	zw   *zstd.Encoder
	enc  *json.Encoder
}

func openSegment(dir, hour string) (*segment, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, fmt.Sprintf("games-%s.jsonl.zst", hour))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		f.Close()
		return nil, err
	}
	return &segment{hour: hour, file: f, zw: zw, enc: json.NewEncoder(zw)}, nil
}

// append writes rec as one line. json.Encoder terminates it with a newline.
func (s *segment) append(rec Record) error {
	if err := s.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode record %s: %w", rec.RoomID, err)
	}
	return s.zw.Flush()
}

func (s *segment) close() error {
	err := s.zw.Close()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}
