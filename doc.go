// Package kls provides thread-scoped storage slots and transient per-thread
// arenas for Go programs that pin work to OS threads.
//
// Two facilities share one Runtime:
//
//   - Slots: dynamically allocated keys, each bound to a cleanup. Every
//     Thread holds its own value per key. Values are cleaned up exactly once
//     when their key is deleted or their thread exits, whichever comes first.
//   - Arenas: each Thread bump-allocates short-lived memory from 4 MiB blocks.
//     Allocations can be freed from any goroutine; a block goes back to the
//     pool once its thread moved on and every allocation cut from it was freed.
//
// # Quick Start
//
//	rt := kls.New()
//	defer rt.Close()
//
//	key := rt.CreateSlot(func(v, _ any) { v.(*conn).Close() }, nil)
//
//	t := rt.Go(func(t *kls.Thread) {
//	    t.SetSlotValue(key, dial())
//
//	    buf, err := t.Allocate(4096)
//	    if err != nil {
//	        return
//	    }
//	    results <- buf // freed by the consumer with kls.Free(buf)
//	})
//	_ = t.Wait(ctx)
//
// # Threads
//
// Go exposes no thread identity and no thread-exit hook, so ownership is
// explicit. Runtime.Go runs a function on a goroutine locked to its OS thread
// and exits the Thread when the function returns. Runtime.Attach hands out a
// Thread for the calling goroutine; the caller must call Thread.Exit.
//
// All Thread methods except ID and Wait belong to the owning goroutine.
//
// # Typed Slots
//
//	counter := kls.NewSlot[int](rt, nil)
//	defer counter.Close()
//
//	n := counter.GetOrInit(t, func() int { return 0 })
//	*n++
//
// # Arena Memory
//
// Block memory is not scanned by the garbage collector. Store only plain
// data in it; Alloc and AllocSlice reject types containing Go pointers.
package kls
