package client

import (
	"strings"

	"github.com/google/uuid"
)

type ActivityType int

const (
	Game      ActivityType = 0
	Streaming ActivityType = 1
	Listening ActivityType = 2
	Watching  ActivityType = 3
	Custom    ActivityType = 4
	Competing ActivityType = 5
)

type Button struct {
	Label string `json:"label"`
	Url   string `json:"url"`
}

type Party struct {
	ID   *string `json:"id,omitempty"`
	Size []int   `json:"size,omitempty"` // [current, max]
}

type Assets struct {
	LargeImage *string `json:"large_image,omitempty"`
	LargeText  *string `json:"large_text,omitempty"`
	SmallImage *string `json:"small_image,omitempty"`
	SmallText  *string `json:"small_text,omitempty"`
}

// Timestamps are epoch seconds. A nil bound is left out of the payload.
type Timestamps struct {
	Start *int64 `json:"start,omitempty"`
	End   *int64 `json:"end,omitempty"`
}

type Secrets struct {
	Join     *string `json:"join,omitempty"`
	Spectate *string `json:"spectate,omitempty"`
	Match    *string `json:"match,omitempty"`
}

// Activity is the rich presence state sent with SET_ACTIVITY. Optional
// fields are pointers so that an unset field is omitted from the JSON while
// an explicitly empty string is still sent.
type Activity struct {
	Type       ActivityType `json:"type"`
	State      *string      `json:"state,omitempty"`
	Details    *string      `json:"details,omitempty"`
	Timestamps *Timestamps  `json:"timestamps,omitempty"`
	Assets     *Assets      `json:"assets,omitempty"`
	Party      *Party       `json:"party,omitempty"`
	Secrets    *Secrets     `json:"secrets,omitempty"`
	Instance   *bool        `json:"instance,omitempty"`
	Buttons    []Button     `json:"buttons,omitempty"`
}

func (a Activity) IsEmpty() bool {
	return a.State == nil &&
		a.Details == nil &&
		a.Timestamps == nil &&
		a.Assets == nil &&
		a.Party == nil &&
		a.Secrets == nil &&
		a.Instance == nil &&
		len(a.Buttons) == 0
}

func String(s string) *string { return &s }

func Int64(v int64) *int64 { return &v }

func Bool(b bool) *bool { return &b }

// sanitize returns a copy safe to hand to the peer: a party with a size but
// no id gets a generated one, and buttons are trimmed to at most two valid
// http(s) links.
func sanitize(act Activity) Activity {
	if act.Party != nil {
		p := *act.Party
		if len(p.Size) == 2 && p.ID == nil {
			p.ID = String(uuid.NewString())
		}
		if len(p.Size) != 2 {
			p.Size = nil
		}
		if p.ID == nil && p.Size == nil {
			act.Party = nil
		} else {
			act.Party = &p
		}
	}

	if len(act.Buttons) > 0 {
		valid := make([]Button, 0, 2)
		for _, b := range act.Buttons {
			label := strings.TrimSpace(b.Label)
			url := strings.TrimSpace(b.Url)
			if label == "" || url == "" || !(strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")) {
				continue
			}
			valid = append(valid, Button{Label: label, Url: url})
			if len(valid) == 2 {
				break
			}
		}
		if len(valid) == 0 {
			valid = nil
		}
		act.Buttons = valid
	}
	return act
}
