package provider

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"
)

const (
	meetingHost         = "teams.microsoft.com"
	meetupJoinSegment   = "meetup-join"
	defaultMessageID    = "0"
	meetingThreadPrefix = "19:"
)

type MeetingInfo struct {
	ThreadID    string
	OrganizerID string
	TenantID    string
	MessageID   string
}

type meetingPayload struct {
	Tid       string `json:"Tid"`
	Oid       string `json:"Oid"`
	ThreadID  string `json:"threadId"`
	MessageID string `json:"messageId"`
}

func (p meetingPayload) empty() bool {
	return p.Tid == "" && p.Oid == "" && p.ThreadID == ""
}

// ParseMeetingURL extracts chat and organizer identity from a meeting join link.
// Two encodings are understood: a path segment holding base64 JSON, or a "context" query
// parameter holding URL-encoded JSON. Anything else yields nil.
func ParseMeetingURL(raw string) *MeetingInfo {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	if host != meetingHost && !strings.HasSuffix(host, "."+meetingHost) {
		return nil
	}
	segments := pathSegments(u)

	for _, seg := range base64Candidates(segments) {
		p, ok := decodeBase64Payload(seg)
		if !ok {
			continue
		}
		return p.toInfo()
	}

	if ctx := u.Query().Get("context"); ctx != "" {
		var p meetingPayload
		if err := json.Unmarshal([]byte(ctx), &p); err != nil || (p.Tid == "" && p.Oid == "") {
			return nil
		}
		threadID, messageID := threadFromPath(segments)
		p.ThreadID = FirstNonEmpty(p.ThreadID, threadID)
		p.MessageID = FirstNonEmpty(p.MessageID, messageID)
		return p.toInfo()
	}
	return nil
}

func (p meetingPayload) toInfo() *MeetingInfo {
	info := &MeetingInfo{
		ThreadID:    p.ThreadID,
		OrganizerID: p.Oid,
		TenantID:    p.Tid,
		MessageID:   p.MessageID,
	}
	if info.ThreadID != "" && info.MessageID == "" {
		info.MessageID = defaultMessageID
	}
	return info
}

func pathSegments(u *url.URL) []string {
	rawSegments := strings.Split(strings.Trim(u.EscapedPath(), "/"), "/")
	segments := make([]string, 0, len(rawSegments))
	for _, s := range rawSegments {
		if s == "" {
			continue
		}
		decoded, err := url.PathUnescape(s)
		if err != nil {
			decoded = s
		}
		segments = append(segments, decoded)
	}
	return segments
}

// base64Candidates lists each segment plus the remainder after meetup-join re-joined,
// since standard base64 may itself contain '/'.
func base64Candidates(segments []string) []string {
	candidates := append([]string(nil), segments...)
	for i, seg := range segments {
		if seg == meetupJoinSegment && i+2 < len(segments) {
			candidates = append(candidates, strings.Join(segments[i+1:], "/"))
		}
	}
	return candidates
}

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.URLEncoding,
	base64.RawStdEncoding,
	base64.RawURLEncoding,
}

func decodeBase64Payload(segment string) (meetingPayload, bool) {
	for _, enc := range base64Encodings {
		b, err := enc.DecodeString(segment)
		if err != nil || len(b) == 0 || b[0] != '{' {
			continue
		}
		var p meetingPayload
		if err := json.Unmarshal(b, &p); err != nil || p.empty() {
			continue
		}
		return p, true
	}
	return meetingPayload{}, false
}

func threadFromPath(segments []string) (string, string) {
	for i, seg := range segments {
		if seg != meetupJoinSegment || i+1 >= len(segments) {
			continue
		}
		thread := segments[i+1]
		if !strings.HasPrefix(thread, meetingThreadPrefix) {
			return "", ""
		}
		message := ""
		if i+2 < len(segments) {
			message = segments[i+2]
		}
		return thread, message
	}
	return "", ""
}
