package logging

import "strings"

// FormatSubject builds the anime/episode subject shown in console output,
// e.g. "Anime #12 ep 4".
func FormatSubject(animeID, episode string) string {
	animeID = strings.TrimSpace(animeID)
	episode = strings.TrimSpace(episode)
	switch {
	case animeID != "" && episode != "":
		return "Anime #" + animeID + " ep " + episode
	case animeID != "":
		return "Anime #" + animeID
	case episode != "":
		return "ep " + episode
	default:
		return ""
	}
}
