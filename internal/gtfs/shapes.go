package gtfs

// GetRegionBounds returns the center and span of every shape point and stop
// in the last generated feed. All values are zero before the first run.
func (manager *Manager) GetRegionBounds() (lat, lon, latSpan, lonSpan float64) {
	result := manager.LastResult()
	if result == nil {
		return 0, 0, 0, 0
	}

	var minLat, maxLat, minLon, maxLon float64
	first := true
	extend := func(pointLat, pointLon float64) {
		if first {
			minLat, maxLat = pointLat, pointLat
			minLon, maxLon = pointLon, pointLon
			first = false
			return
		}
		minLat = min(minLat, pointLat)
		maxLat = max(maxLat, pointLat)
		minLon = min(minLon, pointLon)
		maxLon = max(maxLon, pointLon)
	}

	for _, point := range result.Feed.Shapes {
		extend(point.Lat, point.Lon)
	}
	for _, stop := range result.Feed.Stops {
		extend(stop.Lat, stop.Lon)
	}

	lat = (minLat + maxLat) / 2
	lon = (minLon + maxLon) / 2
	latSpan = maxLat - minLat
	lonSpan = maxLon - minLon

	return lat, lon, latSpan, lonSpan
}
