package engine

import "github.com/dewi-tim/genesisplay/internal/pcm"

// Options is the player's configuration surface, per spec §6.
type Options struct {
	// Looping controls end-of-stream behavior: seek to the declared loop
	// point and increment LoopCount (true, requires the interpreter
	// report a loop), or transition to Finished (false).
	Looping bool
	// PCM is forwarded to pcm.New when a VGM interpreter's bank is
	// constructed; GEP streams have no allocation-fallback PCM bank (they
	// use gep.PCMRegion) so it is unused in that path.
	PCM pcm.Options
}
