// Package progress holds the gamified leveling rules: the geometric XP curve,
// the level-up loop, the XP awarded for watching, completing and rating
// titles, and the fixed achievement catalogue.
//
// Everything here is arithmetic over values; persistence of the profile and
// of unlocked achievements belongs to the library store.
package progress
