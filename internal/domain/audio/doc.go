// Package audio plans the cues sent to the browser synthesizer.
//
// The Engine listens to session events and translates them into Cues:
// timbre changes per category, continuous parameter ramps driven by
// clarity and focus, spray clicks, capture chimes, mode transition cues,
// and loop playback of recorded tracks, one player goroutine per category.
package audio
