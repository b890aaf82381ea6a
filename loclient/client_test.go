package loclient

import (
	"testing"

	"github.com/orange-lo/iotsoftbox-go/registry"
	"github.com/orange-lo/iotsoftbox-go/value"
)

func TestCheckAPIKey(t *testing.T) {
	cases := []struct {
		key  string
		want bool
	}{
		{"0123456789abcdef0123456789ABCDEF0", false}, // 33 chars
		{"0123456789abcdef0123456789ABCDE", false},   // 31 chars
		{"0123456789abcdef0123456789ABCDEx", false},  // non-hex
		{"0123456789abcdef0123456789abcdef", true},
		{"", false},
	}
	for _, c := range cases {
		if got := CheckAPIKey(c.key); got != c.want {
			t.Errorf("CheckAPIKey(%q) = %v, want %v", c.key, got, c.want)
		}
	}
}

func TestWithAPIKeyRejectsMalformed(t *testing.T) {
	if _, err := New("broker:1883", WithAPIKey("not-hex")); err != ErrInvalidAPIKey {
		t.Errorf("New() error = %v, want ErrInvalidAPIKey", err)
	}
}

func TestWithAPIKeyPartsJoins(t *testing.T) {
	c, err := New("broker:1883", WithAPIKeyParts(0x0123456789abcdef, 0xfedcba9876543210))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if want := "0123456789abcdeffedcba9876543210"; c.opts.password != want {
		t.Errorf("password = %s, want %s", c.opts.password, want)
	}
}

func TestSetDeviceIDAndNamespaceBoundedCopy(t *testing.T) {
	c, err := New("broker:1883")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	long := make([]byte, maxDeviceIDLen+10)
	for i := range long {
		long[i] = 'a'
	}
	c.SetDeviceID(string(long))
	if len(c.deviceID) != maxDeviceIDLen {
		t.Errorf("len(deviceID) = %d, want %d", len(c.deviceID), maxDeviceIDLen)
	}
}

func TestConnectWithoutIdentityFails(t *testing.T) {
	c, err := New("broker:1883")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.ensureController(); err != ErrIdentityRequired {
		t.Errorf("ensureController() error = %v, want ErrIdentityRequired", err)
	}
}

func TestPublishWithoutIdentityFails(t *testing.T) {
	c, err := New("broker:1883")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Publish("dev/x", []byte("{}")); err != ErrIdentityRequired {
		t.Errorf("Publish() error = %v, want ErrIdentityRequired", err)
	}
}

func TestAttachAndPushStatus(t *testing.T) {
	c, err := New("broker:1883")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	coll := value.NewCollection()
	coll.Add(value.Scalar("up", func() value.Value { return value.Value{Tag: value.Bool, B: true} }))
	h, err := c.AttachStatus("s1", coll)
	if err != nil {
		t.Fatalf("AttachStatus() error = %v", err)
	}
	if err := c.PushStatus(h); err != nil {
		t.Fatalf("PushStatus() error = %v", err)
	}
	s, _ := c.reg.Status.Get(h)
	if !s.Dirty {
		t.Error("status set not marked dirty after PushStatus")
	}
}

func TestAttachCfgParamsAndPush(t *testing.T) {
	c, err := New("broker:1883")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.PushCfgParams(); err != ErrParamsNotAttached {
		t.Fatalf("PushCfgParams() before attach = %v, want ErrParamsNotAttached", err)
	}
	coll := value.NewCollection()
	c.AttachCfgParams(coll, nil)
	if err := c.PushCfgParams(); err != nil {
		t.Fatalf("PushCfgParams() error = %v", err)
	}
	if !c.reg.Params.Dirty {
		t.Error("Params not marked dirty after PushCfgParams")
	}
}

func TestControlCommandsAndResources(t *testing.T) {
	c, err := New("broker:1883")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.ControlCommands(true)
	if !c.reg.CommandsEnable.NeedsSubscribe() {
		t.Error("CommandsEnable not armed after ControlCommands(true)")
	}
	c.ControlResources(true)
	if !c.reg.ResourcesEnable.NeedsSubscribe() {
		t.Error("ResourcesEnable not armed after ControlResources(true)")
	}
	c.ControlCommands(false)
	if c.reg.CommandsEnable.NeedsSubscribe() {
		t.Error("CommandsEnable still armed after ControlCommands(false)")
	}
}

func TestEncodeCommandResponse(t *testing.T) {
	got, err := encodeCommandResponse(5, 1, nil)
	if err != nil {
		t.Fatalf("encodeCommandResponse() error = %v", err)
	}
	if want := `{"cid":5,"res":1}`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}

	coll := value.NewCollection()
	coll.Add(value.Scalar("ok", func() value.Value { return value.Value{Tag: value.Bool, B: true} }))
	got, err = encodeCommandResponse(5, 1, coll)
	if err != nil {
		t.Fatalf("encodeCommandResponse() error = %v", err)
	}
	if want := `{"cid":5,"res":1,"val":{"ok":true}}`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestAttachResourceAndDescriptorLookup(t *testing.T) {
	c, err := New("broker:1883")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h, err := c.AttachResource("fw", "1.0", nil, nil)
	if err != nil {
		t.Fatalf("AttachResource() error = %v", err)
	}
	d, err := c.reg.Resources.Get(h)
	if err != nil || d.Name != "fw" {
		t.Fatalf("Resources.Get(%d) = %+v, %v", h, d, err)
	}
}

func TestWithCapacitiesAppliesToRegistry(t *testing.T) {
	c, err := New("broker:1883", WithCapacities(registry.Capacities{Status: 1, Data: 1, Command: 1, Resource: 1}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	coll := value.NewCollection()
	if _, err := c.AttachStatus("s1", coll); err != nil {
		t.Fatalf("first AttachStatus() error = %v", err)
	}
	if _, err := c.AttachStatus("s2", coll); err == nil {
		t.Fatal("expected second AttachStatus to fail against a capacity-1 table")
	}
}
