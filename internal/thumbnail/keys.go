package thumbnail

import "strconv"

// VideoKey returns the storage key of an asset's video.
func VideoKey(assetID string) string {
	return assetID + ".mkv"
}

// SubtitleKey returns the storage key of an asset's subtitle bitmap for track.
func SubtitleKey(assetID string, track int) string {
	return assetID + "_" + strconv.Itoa(track) + ".webp"
}
