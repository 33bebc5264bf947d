// Package notifications delivers tracker events through ntfy.
//
// Service.Publish formats an Event and its Payload into an ntfy message. When
// no topic is configured NewService returns a no-op service, so callers never
// branch on whether push is enabled.
//
// EpisodeNotifier sits on top of a Service and turns projected airings into
// "new episode" pushes. It remembers what was sent through a NotifiedSet, so
// every (anime, episode) pair is announced once no matter how often the
// daemon's notify loop runs.
package notifications
