// Package music defines the supported streaming services and recognizes their track links.
package music

import "regexp"

// Service identifies a music platform by its song.link platform key.
type Service string

const (
	Spotify      Service = "spotify"
	YouTubeMusic Service = "youtubeMusic"
	Yandex       Service = "yandex"
	SoundCloud   Service = "soundcloud"

	// Self is the reserved key of the canonical aggregator page. It is not a Service of Services.
	Self Service = "self"
)

// Services lists the supported platforms in caption order.
var Services = []Service{Spotify, YouTubeMusic, Yandex, SoundCloud}

var serviceNames = map[Service]string{
	Spotify:      "Spotify",
	YouTubeMusic: "YouTube Music",
	Yandex:       "Yandex",
	SoundCloud:   "SoundCloud",
	Self:         "Other",
}

// Name returns the label shown to users.
func (s Service) Name() string {
	if n, ok := serviceNames[s]; ok {
		return n
	}
	return string(s)
}

// ParseService resolves a platform key. Self is not accepted.
func ParseService(key string) (Service, bool) {
	for _, s := range Services {
		if string(s) == key {
			return s, true
		}
	}
	return "", false
}

// Links maps services, plus Self, to URLs. A missing key means no link for that service.
type Links map[Service]string

// Clone returns an independent copy of l.
func (l Links) Clone() Links {
	out := make(Links, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

var (
	aggregatorRe = regexp.MustCompile(`^https?://song\.link/(\w+)/([^/]+)$`)

	// serviceRes are tried in Services order. A capture group, when present, is the platform track id.
	serviceRes = map[Service]*regexp.Regexp{
		Spotify:      regexp.MustCompile(`^https?://open\.spotify\.com/track/(\w+)`),
		YouTubeMusic: regexp.MustCompile(`^https?://(?:(?:music\.|www\.)?youtube\.com/watch\?v=|youtu\.be/)(\w+)`),
		Yandex:       regexp.MustCompile(`^https?://music\.yandex\.ru/(?:album/\d+/)?track/(\d+)`),
		SoundCloud:   regexp.MustCompile(`^https?://soundcloud\.com/[^/]+/[^/]+`),
	}
)

// Match describes a recognized track link.
type Match struct {
	URL string
	// Aggregator is set for song.link pages, which already carry every platform.
	Aggregator bool
	Service    Service
	// ID is the platform track id; empty when the link pattern has none.
	ID string
}

// DetectLink checks url against the aggregator pattern first, then each service in order.
func DetectLink(url string) (Match, bool) {
	if aggregatorRe.MatchString(url) {
		return Match{URL: url, Aggregator: true}, true
	}
	for _, s := range Services {
		sub := serviceRes[s].FindStringSubmatch(url)
		if sub == nil {
			continue
		}
		m := Match{URL: url, Service: s}
		if len(sub) > 1 {
			m.ID = sub[1]
		}
		return m, true
	}
	return Match{}, false
}
