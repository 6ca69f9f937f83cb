// tui-demo is a manual test program for the session editor.
// Run with: go run ./cmd/tui-demo
//
// It opens a small RV64 program in an in-memory store whose uploads fail
// every third attempt, so sync failure toasts can be seen. Quit with q.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/thruflo/rain/internal/emulator"
	"github.com/thruflo/rain/internal/store"
	"github.com/thruflo/rain/internal/syncer"
	"github.com/thruflo/rain/internal/tui"
	"github.com/thruflo/rain/internal/vm"
)

// demoProgram sums 1..10 into a0, followed by a stray trailing byte.
var demoProgram = []byte{
	0x13, 0x05, 0x00, 0x00, // addi a0,zero,0
	0x93, 0x05, 0xa0, 0x00, // addi a1,zero,10
	0x2e, 0x95, // c.add a0,a1
	0xfd, 0x15, // c.addi a1,-1
	0xed, 0xfd, // c.bnez a1,-6
	0x73, 0x00, 0x10, 0x00, // ebreak
	0x01, 0x00, // c.nop
	0x13,
}

// flakyStore fails every third upload with a transport error.
type flakyStore struct {
	store.Store
	n atomic.Int64
}

func (f *flakyStore) Upsert(ctx context.Context, token string, snap store.Snapshot) error {
	if f.n.Add(1)%3 == 0 {
		return &store.TransportError{Op: "upsert", Err: errors.New("connection reset by peer (simulated)")}
	}
	return f.Store.Upsert(ctx, token, snap)
}

func main() {
	if err := runDemo(); err != nil {
		fmt.Fprintf(os.Stderr, "Demo error: %v\n", err)
		os.Exit(1)
	}
}

func runDemo() error {
	ctx := context.Background()
	const token = "demo"

	st := &flakyStore{Store: store.NewMemoryStore()}
	snap, err := st.Create(ctx, token)
	if err != nil {
		return err
	}
	snap.Name = "sum-to-ten"
	state := vm.State{Memory: demoProgram}
	state.Registers[2] = 0x80010000
	snap.CPU = store.NewCPU(state)

	term := tui.NewTerminal(os.Stdin, os.Stdout)
	toasts := tui.NewToasts(tui.DefaultToastTTL, term)
	session, err := emulator.New(emulator.Config{
		Sync:      syncer.Config{Interval: 2 * time.Second},
		CacheSize: 256,
	}, snap, st, token, toasts, time.Now())
	if err != nil {
		return err
	}
	toasts.Info("Demo", "uploads fail every third attempt")

	editor := tui.NewEditor(session, toasts, term, tui.Options{Color: true})
	if err := editor.Run(ctx); err != nil {
		return err
	}

	stats := session.SyncStats()
	fmt.Printf("uploads: %d ok, %d failed, %d skipped\n", stats.Succeeded, stats.Failed, stats.Skipped)
	return nil
}
