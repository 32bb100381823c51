package factory

import "testing"

type sink struct{ Addr string }

type sinkConf struct {
	Addr string `json:"addr"`
}

func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*sink]()
	reg.MustRegister("push", func(conf map[string]any) (*sink, error) {
		var c sinkConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &sink{Addr: c.Addr}, nil
	})

	inst, err := reg.Create(ModuleConfig{Type: "push", Conf: map[string]any{"addr": "localhost:9091"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inst.Addr != "localhost:9091" {
		t.Fatalf("decoded addr: %q", inst.Addr)
	}
}

func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]()
	if err := reg.Register("x", func(map[string]any) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("x", func(map[string]any) (int, error) { return 2, nil }); err == nil {
		t.Fatal("expected duplicate error")
	}
	if err := reg.Register("y", nil); err == nil {
		t.Fatal("expected nil builder error")
	}
	if _, err := reg.Create(ModuleConfig{Type: "missing"}); err == nil {
		t.Fatal("expected unknown type error")
	}
	if got := reg.Types(); len(got) != 1 || got[0] != "x" {
		t.Fatalf("types: %v", got)
	}
}
