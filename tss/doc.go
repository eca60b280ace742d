// Package tss implements dynamically allocated thread-scoped storage slots.
//
// # Model
//
// A Registry hands out integer keys (Create) and retires them (Delete). Each
// owning thread holds a Context obtained from Registry.Attach: a sparse array
// of values indexed by key. Only the owning goroutine may call Get and Set on
// its Context; they take no lock.
//
//	reg := tss.NewRegistry()
//	key := reg.Create(tss.Cleanup{Fn: func(v, _ any) { v.(io.Closer).Close() }})
//
//	ctx := reg.Attach() // once per thread
//	defer ctx.Close()   // thread exit
//
//	ctx.Set(key, conn)
//	c := ctx.Get(key).(io.Closer)
//
// # Cleanup
//
// A value becomes orphaned when its key is deleted or its Context is closed.
// Orphaned values are handed to the key's cleanup exactly once:
//
//   - Delete collects every live Context's value under the key while holding
//     the registry lock, then runs the cleanups after releasing it. The key
//     is recycled only after all of them returned.
//   - Context.Close drains the context until a full pass finds no value,
//     so values installed by a cleanup during the drain are cleaned up too.
//
// # Caller Discipline
//
// Delete must not race with Get or Set of the same key on any Context: retire
// a key only once no goroutine writes it anymore. The registry lock orders
// the registry's own bookkeeping; it does not make a concurrent Set of the
// deleted key visible to Delete.
//
// # Typed Slots
//
// Slot[T] owns one key for its lifetime and manages *T values with a
// destroy function.
package tss
