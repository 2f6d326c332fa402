// Package song converts between the song format and an in-memory Song.
//
// The song format is a directive-based plain-text notation:
//
//	#title Test Song
//	#author Jane
//	#category Rock
//	#capo 2
//
//	#verse
//	Hello world ~ C G
//	Quiet line
//
//	#chorus
//	Shout it ~ Am
//
// Directives are recognized only at the start of a line. Header directives
// (#title, #author, #category, #capo) carry a single-line value; section
// directives (#verse, #chorus) introduce a body that runs until the next
// directive or the end of input.
//
// # Logical lines
//
// Each body line holds a lyric and an optional chord annotation separated by
// the first "~ " token. A Section stores the two sides as separate
// newline-joined blocks, Lyrics and Chords, aligned line by line. Parse always
// produces blocks of equal line count; Lines pads the shorter side for values
// built by hand.
//
// # Round trip
//
// Parse and Serialize are inverse: for every song accepted by Validate,
// Parse(Serialize(s)) is Equal to s. Equality is defined over logical lines,
// so a hand-built section whose chord block is shorter than its lyric block
// compares equal to its padded, parsed form.
//
// Both functions are pure and safe for concurrent use on independent inputs.
package song
