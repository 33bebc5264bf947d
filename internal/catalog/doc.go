// Package catalog talks to the AniList GraphQL API.
//
// The client searches titles, fetches a single media record with its next
// airing episode, and lists the full airing schedule of a series. Requests
// are throttled client-side with a token bucket and a 429 answer is retried
// after the Retry-After delay. ToSchedule turns a catalog record into the
// weekly airing pattern used by the schedule package.
package catalog
