package feed

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/cppla/spiritfit/apperr"
	"github.com/cppla/spiritfit/models"
	"github.com/cppla/spiritfit/utils"
)

const (
	maxTextLen     = 5000
	maxPollOptions = 10
	maxPollHours   = 24 * 30
	defaultPollTTL = 7 * 24 * time.Hour
)

// Content is the payload of a post. Each post type has exactly one concrete shape.
type Content interface {
	PostType() string
	normalize() error
}

// TextContent backs text, testimony and question posts.
type TextContent struct {
	Kind string `json:"-"`
	Text string `json:"text"`
}

func (c *TextContent) PostType() string { return c.Kind }

func (c *TextContent) normalize() error {
	c.Text = utils.Sanitize(strings.TrimSpace(c.Text))
	return requireText(c.Text)
}

// PrayerRequestContent is a request for the community to pray.
type PrayerRequestContent struct {
	Text    string `json:"text"`
	Urgency string `json:"urgency,omitempty"`
}

func (c *PrayerRequestContent) PostType() string { return models.PostPrayerRequest }

func (c *PrayerRequestContent) normalize() error {
	c.Text = utils.Sanitize(strings.TrimSpace(c.Text))
	switch c.Urgency {
	case "", "normal":
		c.Urgency = "normal"
	case "urgent", "ongoing":
	default:
		return apperr.Validation("unknown urgency %q", c.Urgency)
	}
	return requireText(c.Text)
}

// MediaContent backs image, video and music posts.
type MediaContent struct {
	Kind    string `json:"-"`
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
	Title   string `json:"title,omitempty"`
	Artist  string `json:"artist,omitempty"`
}

func (c *MediaContent) PostType() string { return c.Kind }

func (c *MediaContent) normalize() error {
	if err := checkURL(c.URL); err != nil {
		return err
	}
	c.Caption = utils.Sanitize(strings.TrimSpace(c.Caption))
	c.Title = utils.SanitizePlain(c.Title)
	c.Artist = utils.SanitizePlain(c.Artist)
	return nil
}

// LinkContent shares a URL.
type LinkContent struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

func (c *LinkContent) PostType() string { return models.PostLink }

func (c *LinkContent) normalize() error {
	c.Title = utils.SanitizePlain(c.Title)
	c.Description = utils.SanitizePlain(c.Description)
	return checkURL(c.URL)
}

// VerseContent shares a scripture passage.
type VerseContent struct {
	Reference   string `json:"reference"`
	Text        string `json:"text"`
	Translation string `json:"translation,omitempty"`
	Note        string `json:"note,omitempty"`
}

func (c *VerseContent) PostType() string { return models.PostVerse }

func (c *VerseContent) normalize() error {
	c.Reference = utils.SanitizePlain(c.Reference)
	c.Text = utils.SanitizePlain(c.Text)
	c.Translation = utils.SanitizePlain(c.Translation)
	c.Note = utils.Sanitize(strings.TrimSpace(c.Note))
	if c.Reference == "" {
		return apperr.Validation("verse reference is required")
	}
	return requireText(c.Text)
}

// PollContent is the creation payload of a poll. Votes live in PollData.
type PollContent struct {
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	ExpiresInHours int      `json:"expires_in_hours,omitempty"`
}

func (c *PollContent) PostType() string { return models.PostPoll }

func (c *PollContent) normalize() error {
	c.Question = utils.SanitizePlain(c.Question)
	if c.Question == "" {
		return apperr.Validation("poll question is required")
	}
	opts := make([]string, 0, len(c.Options))
	for _, o := range c.Options {
		if o = utils.SanitizePlain(o); o != "" {
			opts = append(opts, o)
		}
	}
	if len(opts) < 2 {
		return apperr.Validation("a poll needs at least 2 non-empty options")
	}
	if len(opts) > maxPollOptions {
		return apperr.Validation("a poll allows at most %d options", maxPollOptions)
	}
	if c.ExpiresInHours < 0 || c.ExpiresInHours > maxPollHours {
		return apperr.Validation("poll duration must be 0-%d hours", maxPollHours)
	}
	c.Options = opts
	return nil
}

// PollOption is one choice with its tally.
type PollOption struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// PollData is the persisted poll state.
type PollData struct {
	Question  string       `json:"question"`
	Options   []PollOption `json:"options"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
}

// Expired reports whether voting has closed at now.
func (p PollData) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

// TotalVotes sums every option.
func (p PollData) TotalVotes() int {
	n := 0
	for _, o := range p.Options {
		n += o.Votes
	}
	return n
}

func (c *PollContent) pollData(now time.Time) PollData {
	ttl := defaultPollTTL
	if c.ExpiresInHours > 0 {
		ttl = time.Duration(c.ExpiresInHours) * time.Hour
	}
	exp := now.Add(ttl)
	pd := PollData{Question: c.Question, ExpiresAt: &exp}
	for _, o := range c.Options {
		pd.Options = append(pd.Options, PollOption{Text: o})
	}
	return pd
}

// DecodeContent parses raw into the payload shape for postType and validates it.
func DecodeContent(postType string, raw json.RawMessage) (Content, error) {
	var c Content
	switch postType {
	case models.PostText, models.PostTestimony, models.PostQuestion:
		c = &TextContent{Kind: postType}
	case models.PostPrayerRequest:
		c = &PrayerRequestContent{}
	case models.PostImage, models.PostVideo, models.PostMusic:
		c = &MediaContent{Kind: postType}
	case models.PostLink:
		c = &LinkContent{}
	case models.PostVerse:
		c = &VerseContent{}
	case models.PostPoll:
		c = &PollContent{}
	default:
		return nil, apperr.Validation("unknown post type %q", postType)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, apperr.Validation("post content is required")
	}
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, apperr.Validation("invalid %s content", postType)
	}
	if err := c.normalize(); err != nil {
		return nil, err
	}
	return c, nil
}

func requireText(s string) error {
	if s == "" {
		return apperr.Validation("post content cannot be empty")
	}
	if len([]rune(s)) > maxTextLen {
		return apperr.Validation("post content exceeds %d characters", maxTextLen)
	}
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || raw == "" {
		return apperr.Validation("a valid url is required")
	}
	// Local uploads are served from a relative path.
	if u.Scheme == "" && strings.HasPrefix(u.Path, "/") {
		return nil
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperr.Validation("url must be http or https")
	}
	return nil
}
