package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, dir := range []string{"left", "right"} {
		for _, result := range []string{"success", "error", "in_flight"} {
			RotationsTotal.WithLabelValues(dir, result)
		}
	}

	for _, trigger := range []string{"leave", "flush"} {
		for _, result := range []string{"success", "error"} {
			RegenerationsTotal.WithLabelValues(trigger, result)
		}
	}

	for _, result := range []string{"applied", "stale", "unknown"} {
		GalleryMergesTotal.WithLabelValues(result)
	}

	for _, result := range []string{"success", "error"} {
		PollsTotal.WithLabelValues(result)
	}

	for _, source := range []string{"cache", "network"} {
		for _, result := range []string{"success", "error"} {
			ImageLoadsTotal.WithLabelValues(source, result)
		}
	}

	for _, format := range []string{"jpeg", "png", "gif", "webp", "unknown"} {
		ImageDecodeByFormat.WithLabelValues(format)
	}
}
