package viewer

import (
	"fmt"
	"strings"
	"sync"
)

// Orientation is a panorama camera pose in degrees.
type Orientation struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Fov   float64 `json:"fov"`
}

// DefaultOrientation is the pose a panorama opens with.
var DefaultOrientation = Orientation{Pitch: 0, Yaw: 0, Fov: 90}

// PanoramaConfig is what a panorama renderer needs to show an image.
type PanoramaConfig struct {
	ImageURL string      `json:"image_url"`
	Initial  Orientation `json:"initial"`
}

// Panorama is a 360° image renderer.
type Panorama interface {
	Show(cfg PanoramaConfig) error
	Orientation() Orientation
	// SetOrientation moves the camera. With animate false the change is immediate.
	SetOrientation(o Orientation, animate bool)
}

// ModelStatus is the loading state of a BIM model viewer.
type ModelStatus string

const (
	ModelIdle    ModelStatus = "idle"
	ModelLoading ModelStatus = "loading"
	ModelReady   ModelStatus = "ready"
	ModelFailed  ModelStatus = "failed"
)

// ModelViewer renders an IFC model. Its internals are opaque.
type ModelViewer interface {
	Load(modelURL string) error
	Status() ModelStatus
	Dispose()
}

// MemoryPanorama holds the image and camera pose of a panorama rendered in
// the browser. The browser reports its pose and reads back synced poses.
type MemoryPanorama struct {
	mu           sync.RWMutex
	imageURL     string
	orientation  Orientation
	lastAnimated bool
	sets         int
}

// NewMemoryPanorama returns a panorama showing nothing.
func NewMemoryPanorama() *MemoryPanorama {
	return &MemoryPanorama{orientation: DefaultOrientation}
}

func (p *MemoryPanorama) Show(cfg PanoramaConfig) error {
	if strings.TrimSpace(cfg.ImageURL) == "" {
		return fmt.Errorf("panorama image url is empty")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.imageURL = cfg.ImageURL
	p.orientation = cfg.Initial
	return nil
}

func (p *MemoryPanorama) Orientation() Orientation {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.orientation
}

func (p *MemoryPanorama) SetOrientation(o Orientation, animate bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orientation = o
	p.lastAnimated = animate
	p.sets++
}

// ImageURL returns the image being shown.
func (p *MemoryPanorama) ImageURL() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.imageURL
}

// LastAnimated reports whether the last SetOrientation asked for animation.
func (p *MemoryPanorama) LastAnimated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastAnimated
}

// Sets counts SetOrientation calls.
func (p *MemoryPanorama) Sets() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sets
}

// ModelSlot tracks the model shown by the browser's BIM viewer.
type ModelSlot struct {
	mu       sync.RWMutex
	modelURL string
	status   ModelStatus
	lastErr  string
}

// NewModelSlot returns an idle slot.
func NewModelSlot() *ModelSlot {
	return &ModelSlot{status: ModelIdle}
}

func (m *ModelSlot) Load(modelURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if strings.TrimSpace(modelURL) == "" {
		m.status = ModelFailed
		m.lastErr = "model url is empty"
		return fmt.Errorf("model url is empty")
	}
	m.modelURL = modelURL
	m.status = ModelLoading
	m.lastErr = ""
	return nil
}

// Report records the outcome of the browser-side load.
func (m *ModelSlot) Report(status ModelStatus, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == ModelIdle {
		return
	}
	m.status = status
	m.lastErr = message
}

func (m *ModelSlot) Status() ModelStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// URL returns the model being shown.
func (m *ModelSlot) URL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.modelURL
}

// Err returns the last reported load error.
func (m *ModelSlot) Err() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *ModelSlot) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelURL = ""
	m.status = ModelIdle
	m.lastErr = ""
}
