package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"go-relief-hub/internal/render"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// EncodeEnvelope 把通知序列化为protobuf Struct
func EncodeEnvelope(to Recipient, p Payload) ([]byte, error) {
	fields := map[string]any{
		"user_id":         float64(to.UserID),
		"group_id":        float64(to.GroupID),
		"kind":            string(p.Kind),
		"flash_update_id": float64(p.FlashUpdateID),
		"title":           p.Title,
		"share_with":      p.ShareWith,
		"share_event_id":  float64(p.ShareEventID),
		"artifact_url":    p.ArtifactURL,
		"sent_at":         p.SentAt.UTC().Format(time.RFC3339Nano),
	}
	if p.Summary != nil {
		// structpb 只接受JSON形态的值
		raw, err := json.Marshal(p.Summary)
		if err != nil {
			return nil, fmt.Errorf("build envelope summary: %w", err)
		}
		var summary map[string]any
		if err := json.Unmarshal(raw, &summary); err != nil {
			return nil, fmt.Errorf("build envelope summary: %w", err)
		}
		fields["summary"] = summary
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build envelope: %w", err)
	}
	return proto.Marshal(st)
}

func DecodeEnvelope(data []byte) (Recipient, Payload, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return Recipient{}, Payload{}, fmt.Errorf("decode envelope: %w", err)
	}
	f := st.GetFields()
	num := func(k string) uint { return uint(f[k].GetNumberValue()) }
	str := func(k string) string { return f[k].GetStringValue() }

	to := Recipient{UserID: num("user_id"), GroupID: num("group_id")}
	p := Payload{
		Kind:          Kind(str("kind")),
		FlashUpdateID: num("flash_update_id"),
		Title:         str("title"),
		ShareWith:     str("share_with"),
		ShareEventID:  num("share_event_id"),
		ArtifactURL:   str("artifact_url"),
	}
	if s := str("sent_at"); s != "" {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return Recipient{}, Payload{}, fmt.Errorf("decode envelope sent_at: %w", err)
		}
		p.SentAt = t
	}
	if sv := f["summary"].GetStructValue(); sv != nil {
		raw, err := json.Marshal(sv.AsMap())
		if err != nil {
			return Recipient{}, Payload{}, fmt.Errorf("decode envelope summary: %w", err)
		}
		p.Summary = &render.FlashUpdateDocument{}
		if err := json.Unmarshal(raw, p.Summary); err != nil {
			return Recipient{}, Payload{}, fmt.Errorf("decode envelope summary: %w", err)
		}
	}
	return to, p, nil
}
