// Package rvm is the River Virtual Machine: it verifies signed messages and
// applies them to state through one handler per message type.
//
// A message moves through Received, Verified, Dispatched and then either
// Committed or Rejected. Committed persists the handler's entity together
// with a MessageRecord in one store transaction. Rejected persists nothing.
//
// Entity ids are the content id of the message data, so resubmitting
// byte-identical data re-derives the same id and commits nothing new.
//
// Router methods hold no locks and share no mutable state between calls.
// Races between concurrent messages touching the same entity are settled by
// the store: handlers read and write through a single state.Tx, and status
// transitions are compare-and-set.
package rvm
