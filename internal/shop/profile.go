package shop

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Item is one product in the shop profile document.
//
// FloorPrice is the owner's private minimum. It goes into the generator's
// system context so the model can negotiate, but it must never be rendered
// in anything sent to a customer.
type Item struct {
	ID          string   `json:"id"`
	Name        string   `json:"item"`
	Category    string   `json:"category"`
	Brand       string   `json:"brand"`
	Tier        string   `json:"tier"`
	Condition   string   `json:"condition"`
	Features    string   `json:"features"`
	PublicPrice int      `json:"public_price"`
	FloorPrice  int      `json:"secret_floor_price"`
	Stock       int      `json:"stock_qty"`
	Images      []string `json:"images"`
}

// PaymentPolicy values for Profile.PaymentPolicy.
const (
	PayFirst      = "pay_first"
	PayOnDelivery = "pay_on_delivery"
)

// Profile is the shop document: identity, policies and the full inventory.
type Profile struct {
	ShopName       string `json:"shop_name"`
	PaymentInfo    string `json:"payment_info"`
	PaymentPolicy  string `json:"payment_policy"`
	DeliveryPolicy string `json:"delivery_policy"`
	Inventory      []Item `json:"inventory"`
}

// Store serves the shop profile from an in-memory cache backed by a JSON
// document on disk. External edits to the file invalidate the cache via an
// fsnotify watch, so owner-side edits take effect without a restart.
type Store struct {
	path string

	mu      sync.Mutex
	cached  *Profile
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewStore opens the profile document at path, creating a minimal one if it
// does not exist, and starts watching the file for external edits.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, done: make(chan struct{})}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create profile directory: %w", err)
		}
		empty := &Profile{
			ShopName:      "Duka",
			PaymentPolicy: PayFirst,
			Inventory:     []Item{},
		}
		if err := s.write(empty); err != nil {
			return nil, err
		}
		log.Printf("📄 Created empty shop profile at %s", path)
	}

	if _, err := s.load(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create profile watcher: %w", err)
	}
	// Watch the directory, not the file: editors replace files by rename
	// and a direct file watch goes stale after the first swap.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch profile directory: %w", err)
	}
	s.watcher = watcher
	go s.watchLoop()

	return s, nil
}

func (s *Store) watchLoop() {
	base := filepath.Base(s.path)
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				s.Invalidate()
				log.Printf("🔄 Shop profile changed on disk, cache invalidated")
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️ Profile watcher error: %v", err)
		case <-s.done:
			return
		}
	}
}

// Close stops the file watcher.
func (s *Store) Close() {
	close(s.done)
	if s.watcher != nil {
		s.watcher.Close()
	}
}

// Invalidate drops the cached profile; the next read reloads from disk.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// readProfile parses the document from disk.
func (s *Store) readProfile() (*Profile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shop profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse shop profile: %w", err)
	}
	if p.PaymentPolicy == "" {
		p.PaymentPolicy = PayFirst
	}
	return &p, nil
}

// load reads the document from disk into the cache.
func (s *Store) load() (*Profile, error) {
	p, err := s.readProfile()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cached = p
	s.mu.Unlock()
	return p, nil
}

func (s *Store) write(p *Profile) error {
	data, err := json.MarshalIndent(p, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to serialize shop profile: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write shop profile: %w", err)
	}
	return nil
}

// Get returns the current profile, reloading from disk if the cache was
// invalidated. The returned value is shared; callers must not mutate it.
// Use Update for mutations.
func (s *Store) Get() (*Profile, error) {
	s.mu.Lock()
	cached := s.cached
	s.mu.Unlock()
	if cached != nil {
		return cached, nil
	}
	return s.load()
}

// Update applies fn to the profile under the store lock and persists the
// result. fn returning an error aborts without writing.
func (s *Store) Update(fn func(*Profile) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == nil {
		p, err := s.readProfile()
		if err != nil {
			return err
		}
		s.cached = p
	}
	if err := fn(s.cached); err != nil {
		return err
	}
	return s.write(s.cached)
}

// SetPaymentInfo replaces the payment instructions shown to customers.
func (s *Store) SetPaymentInfo(info string) error {
	return s.Update(func(p *Profile) error {
		p.PaymentInfo = info
		return nil
	})
}

// SetPaymentPolicy switches between pay_first and pay_on_delivery.
func (s *Store) SetPaymentPolicy(policy string) error {
	if policy != PayFirst && policy != PayOnDelivery {
		return fmt.Errorf("unknown payment policy %q", policy)
	}
	return s.Update(func(p *Profile) error {
		p.PaymentPolicy = policy
		return nil
	})
}

// PaymentPolicy returns the active policy, defaulting to pay_first.
func (s *Store) PaymentPolicy() string {
	p, err := s.Get()
	if err != nil || p.PaymentPolicy == "" {
		return PayFirst
	}
	return p.PaymentPolicy
}

// Slugify derives a stable item id from a display name.
func Slugify(name string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}
