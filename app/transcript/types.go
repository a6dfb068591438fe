package transcript

import "strings"

// Subset of ytInitialPlayerResponse embedded in the watch page.
type playerResponse struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

// timedText accepts both the classic <transcript><text> layout and the
// srv3 <timedtext><body><p> layout.
type timedText struct {
	Lines      []timedLine `xml:"text"`
	Paragraphs []timedLine `xml:"body>p"`
}

type timedLine struct {
	Text  string `xml:",chardata"`
	Words []struct {
		Text string `xml:",chardata"`
	} `xml:"s"`
}

func (l timedLine) String() string {
	if len(l.Words) == 0 {
		return l.Text
	}
	var sb strings.Builder
	for _, w := range l.Words {
		sb.WriteString(w.Text)
	}
	return sb.String()
}
