package player

import "sort"

// ===========================
// Radio stations
// ===========================

// stations maps a selectable station name to its direct stream URL. The URLs
// point at plain HTTP/HLS audio endpoints the sink can consume as-is.
var stations = map[string]string{
	"SirasaFM":        "http://live.trusl.com:1170/;",
	"HelaNadaFM":      "https://stream-176.zeno.fm/9ndoyrsujwpvv",
	"Radio Plus Hitz": "https://altair.streamerr.co/stream/8054",
	"English":         "https://hls-01-regions.emgsound.ru/11_msk/playlist.m3u8",
	"HiruFM":          "https://radio.lotustechnologieslk.net:2020/stream/hirufmgarden",
	"RedFM":           "https://shaincast.caster.fm:47830/listen.mp3",
	"RanFM":           "https://207.148.74.192:7874/ran.mp3",
	"YFM":             "http://live.trusl.com:1180/;",
	"Deep House":      "http://live.dancemusic.ro:7000/",
	"Radio Italia":    "https://energyitalia.radioca.st",
	"The Best Music":  "http://s1.slotex.pl:7040/",
	"HITZ FM":         "https://stream-173.zeno.fm/uyx7eqengijtv",
	"Prime Radio HD":  "https://stream-153.zeno.fm/oksfm5djcfxvv",
	"1Mix Radio":      "https://stream-154.zeno.fm/xdf9ba0vyz8uv",
	"Phat":            "https://phat.stream.laut.fm/phat",
	"Pulse EDM":       "https://naxos.cdnstream.com/1373_128",
	"Base Music":      "https://base-music.stream.laut.fm/base-music",
	"Na Dahasa FM":    "https://stream-155.zeno.fm/z7q96fbw7rquv",
	"SunFM":           "https://radio.lotustechnologieslk.net:2020/stream/sunfmgarden",
	"EDM Megashuffle": "https://maggie.torontocast.com:9030/stream",
}

// StationNames returns the selectable station names in stable sorted order,
// for paging through in a keyboard.
func StationNames() []string {
	names := make([]string, 0, len(stations))
	for name := range stations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StationURL resolves a station name picked from the keyboard.
func StationURL(name string) (string, bool) {
	u, ok := stations[name]
	return u, ok
}

// StationItem builds the queue item for a live radio stream. The stream URL
// doubles as the playable path, so nothing is ever fetched to disk.
func StationItem(name, url string, messageID int) Item {
	m := &Media{meta{
		id:        "radio:" + name,
		title:     Truncate(name, titleWidth),
		duration:  "LIVE",
		filePath:  url,
		url:       url,
		messageID: messageID,
		live:      true,
	}}
	return m
}
