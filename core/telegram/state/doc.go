// Package state keeps the pending step of each chat in memory and serializes
// handling per chat, so reading and clearing a step never races with another
// update of the same chat. Bots declare their own State values.
package state
