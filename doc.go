/*
Package typedstore implements a typed key-value store on top of a byte-oriented
storage engine (in this case, on top of Bolt), adding the one thing the engine
lacks: waiting for a key to be written.

We implement:

1. Stores, typed views of an engine with pluggable key and value codecs.

2. Notify-read, which returns a key's value immediately if present, and
otherwise blocks until a write supplies it (or the context ends).

3. Engines: a durable Bolt engine and a transient in-memory one.

# Technical Details

**Waiter registry.**
Each Store family (a store and its clones) shares one Registry mapping encoded
keys to pending waiters. A waiter is a channel with room for one value.
Notify removes a key's whole entry and fills every waiter in it under a single
lock acquisition; entries never outlive their last waiter.

**Check, register, recheck.**
NotifyRead reads the key, registers a waiter if it is absent, and reads the
key again. Write always finishes its Put before calling Notify. A write the
first read missed is therefore either visible to the second read, or its
Notify runs after the waiter was registered and delivers to it.
When the recheck succeeds, the waiter is cancelled; if a Notify already
consumed it, its value is drained from the channel.

**Cancellation.**
A NotifyRead whose context ends cancels its waiter on the way out, so the
registry only ever holds waiters somebody is still waiting on. The error
matches ErrWaitCancelled, ctx.Err() and the context's cause, if any.

**Concurrent writers.**
Every successful Write notifies with its own value; superseded
notifications are not suppressed. Waiters registered before two racing
writes receive whichever Notify reaches the registry first, while the engine
keeps whichever Put landed last.

## Binary encoding

**Keys** are encoded by the key codec and must be injective. A key that
encodes to zero bytes is rejected with ErrEmptyKey before any engine call,
since Bolt cannot store it and a wait on it could never be fulfilled.
TupleCodec encodes composite keys as the concatenated elements followed by
their lengths and count, as byte-reversed uvarints.

**Values** are encoded by the value codec (MsgPack for structs). The Bolt
engine appends an 8-byte little-endian xxhash64 of key and value to every
stored value, and reports a mismatch as ErrCorruptedRecord.
*/
package typedstore
