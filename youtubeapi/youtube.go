// Package youtubeapi reads live and scheduled broadcast state for a set of
// channels through the YouTube Data API using an API key.
package youtubeapi

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/mkobayashi/stream-herald/monitor"
)

// Client looks up one channel at a time; callers fan out across channels.
type Client struct {
	svc *yt.Service
}

// New builds a client with the given API key. Extra options are passed
// through to the underlying service, which tests use to point at a local
// server.
func New(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// FetchLive returns the channel's current live broadcast, or nil if the
// channel is not live.
func (c *Client) FetchLive(ctx context.Context, channelID string) (*monitor.ChannelStream, error) {
	videoID, channelTitle, err := c.searchBroadcast(ctx, channelID, "live")
	if err != nil || videoID == "" {
		return nil, err
	}
	video, err := c.videoDetails(ctx, videoID)
	if err != nil || video == nil {
		return nil, err
	}

	viewers := 0
	startedAt := time.Now()
	if d := video.LiveStreamingDetails; d != nil {
		if d.ConcurrentViewers > 0 {
			viewers = int(d.ConcurrentViewers)
		}
		if t, err := time.Parse(time.RFC3339, d.ActualStartTime); err == nil {
			startedAt = t
		} else if t, err := time.Parse(time.RFC3339, d.ScheduledStartTime); err == nil {
			startedAt = t
		}
	}
	if video.Snippet != nil && video.Snippet.ChannelTitle != "" {
		channelTitle = video.Snippet.ChannelTitle
	}
	return &monitor.ChannelStream{
		ChannelID: channelID,
		VideoID:   videoID,
		Title:     channelTitle,
		Viewers:   viewers,
		StartedAt: startedAt,
	}, nil
}

// FetchUpcoming returns the channel's next scheduled broadcast, or nil if
// none is scheduled or the schedule carries no parseable start time.
func (c *Client) FetchUpcoming(ctx context.Context, channelID string) (*monitor.Upcoming, error) {
	videoID, channelTitle, err := c.searchBroadcast(ctx, channelID, "upcoming")
	if err != nil || videoID == "" {
		return nil, err
	}
	video, err := c.videoDetails(ctx, videoID)
	if err != nil || video == nil {
		return nil, err
	}
	if video.LiveStreamingDetails == nil {
		return nil, nil
	}
	scheduled, err := time.Parse(time.RFC3339, video.LiveStreamingDetails.ScheduledStartTime)
	if err != nil {
		return nil, nil
	}

	title := ""
	if video.Snippet != nil {
		title = video.Snippet.Title
		if video.Snippet.ChannelTitle != "" {
			channelTitle = video.Snippet.ChannelTitle
		}
	}
	if channelTitle == "" {
		channelTitle = channelID
	}
	return &monitor.Upcoming{
		VideoID:        videoID,
		Title:          title,
		ChannelTitle:   channelTitle,
		URL:            "https://www.youtube.com/watch?v=" + videoID,
		ScheduledStart: scheduled,
	}, nil
}

// searchBroadcast finds the channel's newest broadcast of the given event
// type ("live" or "upcoming") and returns its video ID and channel title.
func (c *Client) searchBroadcast(ctx context.Context, channelID, eventType string) (videoID, channelTitle string, err error) {
	res, err := c.svc.Search.List([]string{"snippet"}).
		ChannelId(channelID).
		EventType(eventType).
		Type("video").
		Order("date").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", "", fmt.Errorf("search %s broadcast: %w", eventType, err)
	}
	if len(res.Items) == 0 || res.Items[0].Id == nil {
		return "", "", nil
	}
	if res.Items[0].Snippet != nil {
		channelTitle = res.Items[0].Snippet.ChannelTitle
	}
	return res.Items[0].Id.VideoId, channelTitle, nil
}

func (c *Client) videoDetails(ctx context.Context, videoID string) (*yt.Video, error) {
	res, err := c.svc.Videos.List([]string{"liveStreamingDetails", "snippet"}).
		Id(videoID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("video details: %w", err)
	}
	if len(res.Items) == 0 {
		return nil, nil
	}
	return res.Items[0], nil
}
