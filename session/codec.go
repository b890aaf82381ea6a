package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/orange-lo/iotsoftbox-go/registry"
	"github.com/orange-lo/iotsoftbox-go/value"
)

// configUpdateDirective is the decoded inbound dev/cfg/upd payload.
type configUpdateDirective struct {
	CID     int
	Updates map[string]value.Value
}

func decodeConfigUpdate(payload []byte) (configUpdateDirective, error) {
	obj, err := value.ParseObject(payload)
	if err != nil {
		return configUpdateDirective{}, err
	}
	outer, ok := obj["cfg"].(map[string]any)
	if !ok {
		return configUpdateDirective{}, fmt.Errorf("session: dev/cfg/upd: missing \"cfg\"")
	}
	d := configUpdateDirective{Updates: map[string]value.Value{}}
	d.CID = jsonInt(outer["cid"])
	inner, _ := outer["cfg"].(map[string]any)
	for name, raw := range inner {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		v, err := value.DecodeExtendedParam(m)
		if err != nil {
			continue
		}
		d.Updates[name] = v
	}
	return d, nil
}

// commandDirective is the decoded inbound dev/cmd payload.
type commandDirective struct {
	CID  int
	Name string
	Args map[string]value.Value
}

func decodeCommand(payload []byte) (commandDirective, error) {
	obj, err := value.ParseObject(payload)
	if err != nil {
		return commandDirective{}, err
	}
	d := commandDirective{Args: map[string]value.Value{}}
	d.Name, _ = obj["req"].(string)
	d.CID = jsonInt(obj["cid"])
	if argObj, ok := obj["arg"].(map[string]any); ok {
		for name, raw := range argObj {
			m, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			v, err := value.DecodeExtendedParam(m)
			if err != nil {
				continue
			}
			d.Args[name] = v
		}
	}
	if d.Name == "" {
		return d, fmt.Errorf("session: dev/cmd: missing \"req\"")
	}
	return d, nil
}

// resourceUpdateDirective is the decoded inbound dev/rsc/upd payload.
type resourceUpdateDirective struct {
	CID        int
	Name       string
	OldVersion string
	NewVersion string
	URI        string
	Size       int64
	MD5Hex     string
}

func decodeResourceUpdate(payload []byte) (resourceUpdateDirective, error) {
	obj, err := value.ParseObject(payload)
	if err != nil {
		return resourceUpdateDirective{}, err
	}
	d := resourceUpdateDirective{
		CID:        jsonInt(obj["cid"]),
		Name:       asString(obj["name"]),
		OldVersion: asString(obj["old"]),
		NewVersion: asString(obj["new"]),
		URI:        asString(obj["uri"]),
		Size:       jsonInt64(obj["size"]),
		MD5Hex:     asString(obj["md5"]),
	}
	if d.Name == "" || d.URI == "" {
		return d, fmt.Errorf("session: dev/rsc/upd: missing \"name\" or \"uri\"")
	}
	return d, nil
}

func jsonInt(raw any) int { return int(jsonInt64(raw)) }

func jsonInt64(raw any) int64 {
	n, ok := raw.(json.Number)
	if !ok {
		return 0
	}
	v, _ := n.Int64()
	return v
}

func asString(raw any) string {
	s, _ := raw.(string)
	return s
}

func quoteJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// encodeConfigReply renders the dev/cfg payload. cid == 0 means the
// first-connect full dump (no envelope cid, every parameter included);
// cid != 0 renders the update-reply envelope, restricted to names when
// non-empty (an empty names with cid != 0 means "no parameter accepted,
// echo the full set" per §4.A).
func encodeConfigReply(cid int, c *value.Collection, names []string) (string, error) {
	var only map[string]bool
	if cid != 0 && len(names) > 0 {
		only = make(map[string]bool, len(names))
		for _, n := range names {
			only[n] = true
		}
	}
	inner, err := value.EncodeParamCollection(c, only)
	if err != nil {
		return "", err
	}
	if cid == 0 {
		return fmt.Sprintf(`{"cfg":{"cfg":%s}}`, inner), nil
	}
	return fmt.Sprintf(`{"cfg":{"cid":%d,"cfg":%s}}`, cid, inner), nil
}

// encodeCommandResult renders the dev/cmd/res payload for an immediate
// command result.
func encodeCommandResult(cid, result int) string {
	return fmt.Sprintf(`{"cid":%d,"res":%d}`, cid, result)
}

// encodeResourceAck renders the dev/rsc/upd/res validation acknowledgement.
func encodeResourceAck(cid int, result int) string {
	return fmt.Sprintf(`{"cid":%d,"res":%d}`, cid, result)
}

// encodeStatus renders a status set's dev/info payload: the plain
// collection, no type envelope.
func encodeStatus(c *value.Collection) (string, error) {
	return value.EncodeCollection(c)
}

// encodeData renders a data stream's dev/data payload: stream id, model,
// tags, optional geo-fix, and the sample values.
func encodeData(d *registry.DataStream) (string, error) {
	values, err := value.EncodeCollection(d.Collection)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("{")
	b.WriteString(`"streamId":`)
	b.WriteString(quoteJSON(d.StreamID))
	if d.Model != "" {
		b.WriteString(`,"model":`)
		b.WriteString(quoteJSON(d.Model))
	}
	if d.Tags != "" {
		b.WriteString(`,"tags":`)
		b.WriteString(quoteJSON(d.Tags))
	}
	if d.Geo != nil {
		b.WriteString(`,"gps":{"lat":`)
		b.WriteString(strconv.FormatFloat(d.Geo.Lat, 'f', -1, 64))
		b.WriteString(`,"lon":`)
		b.WriteString(strconv.FormatFloat(d.Geo.Lon, 'f', -1, 64))
		b.WriteString(`,"alt":`)
		b.WriteString(strconv.FormatFloat(d.Geo.Alt, 'f', -1, 64))
		if d.Geo.Time != "" {
			b.WriteString(`,"time":`)
			b.WriteString(quoteJSON(d.Geo.Time))
		}
		b.WriteString("}")
	}
	b.WriteString(`,"value":`)
	b.WriteString(values)
	b.WriteString("}")
	return b.String(), nil
}

// encodeResourceTable renders the dev/rsc payload: a {name:version} object
// over every attached resource.
func encodeResourceTable(t *registry.ResourceTable) string {
	var b strings.Builder
	b.WriteString("{")
	first := true
	t.Each(func(_ int, d *registry.ResourceDescriptor) {
		if !first {
			b.WriteString(",")
		}
		first = false
		b.WriteString(quoteJSON(d.Name))
		b.WriteString(":")
		b.WriteString(quoteJSON(d.Version))
	})
	b.WriteString("}")
	return b.String()
}
