// Package assembly combines scene media, caption pages, and the compiled
// timeline into a composition the renderer consumes. It performs no I/O.
package assembly
