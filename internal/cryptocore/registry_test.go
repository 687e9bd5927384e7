package cryptocore

import (
	"errors"
	"testing"

	"github.com/veilfs/veilfs/internal/iface"
)

func TestStandardRegistryList(t *testing.T) {
	r := StandardRegistry()

	visible := r.List(false)
	for _, a := range visible {
		if a.Hidden {
			t.Errorf("hidden algorithm %q in List(false)", a.Name)
		}
	}
	all := r.List(true)
	if len(all) <= len(visible) {
		t.Errorf("List(true) returned %d entries, List(false) %d; expected at least one hidden entry",
			len(all), len(visible))
	}
}

func TestRegistryDuplicate(t *testing.T) {
	r := NewRegistry()
	a := Algorithm{Name: "x", Iface: iface.New("go/x", 1, 0, 0), KeyLength: Range{Min: 256, Max: 256}}
	ctor := func(ifc iface.Iface, keyLenBits int) (Cipher, error) { return nil, nil }
	if err := r.Register(a, ctor); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(a, ctor); err == nil {
		t.Error("duplicate registration did not fail")
	}
}

func TestRegistryNew(t *testing.T) {
	r := StandardRegistry()

	if _, err := r.New("aes", 256); err != nil {
		t.Error(err)
	}
	if _, err := r.New("aes", 192); err != nil {
		t.Error(err)
	}
	if _, err := r.New("aes", 100); err == nil {
		t.Error("bad key length accepted")
	}
	_, err := r.New("nonexistent", 0)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("want ErrUnsupported, got %v", err)
	}
}

func TestRegistryNewFromIface(t *testing.T) {
	r := StandardRegistry()

	// The current interface and the two revisions its age covers.
	for _, rev := range []int{1, 2, 3} {
		c, err := r.NewFromIface(iface.New("go/aes", rev, 0, 0), 256)
		if err != nil {
			t.Errorf("revision %d: %v", rev, err)
			continue
		}
		if c.Iface().Current != rev {
			t.Errorf("instance reports revision %d, requested %d", c.Iface().Current, rev)
		}
	}
	// Hidden entries still serve explicit interface requests (decode path).
	if _, err := r.NewFromIface(iface.New("go/aes-cfb", 1, 0, 0), 256); err != nil {
		t.Errorf("hidden legacy entry not reachable: %v", err)
	}
	// Unknown interface is fatal at init time.
	_, err := r.NewFromIface(iface.New("go/twofish", 1, 0, 0), 256)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("want ErrUnsupported, got %v", err)
	}
}

func TestRangeAllowed(t *testing.T) {
	r := Range{Min: 128, Max: 256, Inc: 64}
	for _, v := range []int{128, 192, 256} {
		if !r.Allowed(v) {
			t.Errorf("%d should be allowed", v)
		}
	}
	for _, v := range []int{0, 64, 129, 320} {
		if r.Allowed(v) {
			t.Errorf("%d should not be allowed", v)
		}
	}
	fixed := Range{Min: 256, Max: 256}
	if !fixed.Allowed(256) || fixed.Allowed(128) {
		t.Error("fixed range broken")
	}
}
