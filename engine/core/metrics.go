package core

// Number of frames averaged for the frame time.
const metricsAverageCount = 30

/** @brief Rolling frame time and frames-per-second counters. */
type FrameMetrics struct {
	frameTimes   [metricsAverageCount]float64
	avgCounter   int
	frameTimeAvg float64
	frames       int
	accumulated  float64
	fps          float64
}

func NewFrameMetrics() *FrameMetrics {
	return &FrameMetrics{}
}

/**
 * @brief Records one frame that took elapsed seconds. Returns true when a
 * new FPS sample was taken, roughly once per second.
 */
func (m *FrameMetrics) Update(elapsed float64) bool {
	frameMS := elapsed * 1000.0
	m.frameTimes[m.avgCounter] = frameMS
	if m.avgCounter == metricsAverageCount-1 {
		var total float64
		for _, ms := range m.frameTimes {
			total += ms
		}
		m.frameTimeAvg = total / metricsAverageCount
	}
	m.avgCounter = (m.avgCounter + 1) % metricsAverageCount

	m.frames++
	m.accumulated += frameMS
	if m.accumulated < 1000 {
		return false
	}
	m.fps = float64(m.frames)
	m.accumulated -= 1000
	m.frames = 0
	return true
}

func (m *FrameMetrics) FPS() float64 { return m.fps }

// FrameTime is the average frame time in milliseconds.
func (m *FrameMetrics) FrameTime() float64 { return m.frameTimeAvg }
