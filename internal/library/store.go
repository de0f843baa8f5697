// Package library holds the client's optimistic view of the remote image
// library. Enqueued commands patch it immediately for instant feedback;
// nothing here is rolled back when a command later fails. The view is
// reconciled only by replacing it with a fresh server fetch.
package library

import (
	"sort"
	"sync"
)

// Image is one entry in the local view.
type Image struct {
	ID       string            `json:"id"`
	Filename string            `json:"filename"`
	Rating   int               `json:"rating"`
	Tags     map[string]string `json:"tags"`  // keyword -> category
	Lists    map[string]bool   `json:"lists"` // listID -> member
}

// Stats are the derived counters the stat bar renders.
type Stats struct {
	Images  int `json:"images"`
	Tagged  int `json:"tagged"`
	Rated   int `json:"rated"`
	Flagged int `json:"flagged"` // rating < 0
}

// Store is the in-memory optimistic cache.
// All methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	images map[string]*Image
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		images: make(map[string]*Image),
	}
}

// Replace swaps the whole view for a fresh server fetch.
// This is the only reconciliation path after failed commands.
func (s *Store) Replace(images []Image) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.images = make(map[string]*Image, len(images))
	for i := range images {
		img := images[i]
		if img.Tags == nil {
			img.Tags = make(map[string]string)
		}
		if img.Lists == nil {
			img.Lists = make(map[string]bool)
		}
		s.images[img.ID] = &img
	}
}

// SetRating patches an image's rating.
// Unknown images are created on the fly; the next Replace sorts it out.
func (s *Store) SetRating(imageID string, rating int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateLocked(imageID).Rating = rating
}

// ApplyTag applies one signed tag delta: signum >= 0 adds the keyword under
// its category, negative signum removes it.
func (s *Store) ApplyTag(imageID, keyword, category string, signum int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img := s.getOrCreateLocked(imageID)
	if signum < 0 {
		delete(img.Tags, keyword)
		return
	}
	img.Tags[keyword] = category
}

// SetListMembership patches an image's membership in a curated list.
func (s *Store) SetListMembership(imageID, listID string, member bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img := s.getOrCreateLocked(imageID)
	if member {
		img.Lists[listID] = true
		return
	}
	delete(img.Lists, listID)
}

// Get returns a copy of one image.
func (s *Store) Get(imageID string) (Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	img, ok := s.images[imageID]
	if !ok {
		return Image{}, false
	}
	return copyImage(img), true
}

// All returns copies of every image, ordered by id for stable rendering.
func (s *Store) All() []Image {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Image, 0, len(s.images))
	for _, img := range s.images {
		out = append(out, copyImage(img))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats derives counters from the current view.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Images: len(s.images)}
	for _, img := range s.images {
		if len(img.Tags) > 0 {
			st.Tagged++
		}
		if img.Rating > 0 {
			st.Rated++
		}
		if img.Rating < 0 {
			st.Flagged++
		}
	}
	return st
}

func (s *Store) getOrCreateLocked(imageID string) *Image {
	img, ok := s.images[imageID]
	if !ok {
		img = &Image{
			ID:    imageID,
			Tags:  make(map[string]string),
			Lists: make(map[string]bool),
		}
		s.images[imageID] = img
	}
	return img
}

func copyImage(img *Image) Image {
	out := *img
	out.Tags = make(map[string]string, len(img.Tags))
	for k, v := range img.Tags {
		out.Tags[k] = v
	}
	out.Lists = make(map[string]bool, len(img.Lists))
	for k, v := range img.Lists {
		out.Lists[k] = v
	}
	return out
}
