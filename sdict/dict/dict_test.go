package dict

import (
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/TheusHen/sdict/sdict/record"
)

func rec(k, v string) record.Record {
	return record.Record{Key: []byte(k), Value: []byte(v)}
}

func TestLoadPurgesInvalidAndDuplicateKeys(t *testing.T) {
	d := New()
	bad := record.Record{Key: []byte{0xff, 0xfe}, Value: []byte("x")}
	purge := d.Load([]record.Record{
		rec("apple", "red"),
		bad,
		rec("banana", "yellow"),
		rec("apple", "green"),
	})

	if len(purge) != 2 {
		t.Fatalf("purge = %q, want 2 keys", purge)
	}
	if string(purge[0]) != string(bad.Key) || string(purge[1]) != "apple" {
		t.Fatalf("purge = %q", purge)
	}
	if v, _ := d.Get("apple"); v != "red" {
		t.Fatalf("first occurrence should win, got %q", v)
	}
	if d.Len() != 2 {
		t.Fatalf("Len = %d, want 2", d.Len())
	}
}

func TestLoadReplacesContents(t *testing.T) {
	d := New()
	d.Put("old", "1")
	d.Load([]record.Record{rec("new", "2")})
	if _, ok := d.Get("old"); ok {
		t.Fatalf("Load kept a key from before")
	}
	if got := d.Latest(0); !reflect.DeepEqual(got, []string{"new"}) {
		t.Fatalf("Latest = %q", got)
	}
}

func TestLatestOrder(t *testing.T) {
	d := New()
	d.Load([]record.Record{rec("a", "1"), rec("b", "2"), rec("c", "3")})
	d.Put("d", "4")
	d.Put("a", "updated")

	if got := d.Latest(0); !reflect.DeepEqual(got, []string{"d", "c", "b", "a"}) {
		t.Fatalf("Latest(0) = %q", got)
	}
	if got := d.Latest(2); !reflect.DeepEqual(got, []string{"d", "c"}) {
		t.Fatalf("Latest(2) = %q", got)
	}
	if got := d.Latest(10); len(got) != 4 {
		t.Fatalf("Latest(10) = %q", got)
	}

	if !d.Delete("c") {
		t.Fatalf("Delete(c) = false")
	}
	if d.Delete("c") {
		t.Fatalf("second Delete(c) = true")
	}
	if got := d.Latest(0); !reflect.DeepEqual(got, []string{"d", "b", "a"}) {
		t.Fatalf("Latest after delete = %q", got)
	}
}

func TestKeysSorted(t *testing.T) {
	d := New()
	d.Load([]record.Record{rec("zeta", ""), rec("alpha", ""), rec("mid", "")})
	if got := d.Keys(); !reflect.DeepEqual(got, []string{"alpha", "mid", "zeta"}) {
		t.Fatalf("Keys = %q", got)
	}
}

func TestFilterValues(t *testing.T) {
	d := New()
	d.Load([]record.Record{rec("k1", "go fast"), rec("k2", "rust"), rec("k3", "go far")})
	got := d.Filter(func(v string) bool { return strings.HasPrefix(v, "go") })
	want := map[string]string{"k1": "go fast", "k3": "go far"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Filter = %v", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	d := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			for j := 0; j < 100; j++ {
				d.Put(key, "v")
				d.Get(key)
				d.Latest(3)
				d.Delete(key)
			}
		}(i)
	}
	wg.Wait()
	if d.Len() != 0 {
		t.Fatalf("Len = %d after balanced put/delete", d.Len())
	}
}
