package signaling

import (
	"encoding/json"
	"testing"
)

func TestEncodeShape(t *testing.T) {
	frame, err := Encode(TypeJoined, JoinedPayload{UserID: "u1", Username: "bob"})
	if err != nil {
		t.Fatal(err)
	}

	if want := `{"type":"joined","data":{"userId":"u1","username":"bob"}}`; string(frame) != want {
		t.Fatalf("frame = %s, want %s", frame, want)
	}
}

func TestEncodeRejectsUnmarshalableData(t *testing.T) {
	if _, err := Encode(TypeSuccess, map[string]any{"bad": make(chan int)}); err == nil {
		t.Fatal("expected an error")
	}
}

func TestDecode(t *testing.T) {
	cases := []struct {
		name    string
		frame   string
		typ     MessageType
		data    string
		wantErr bool
	}{
		{name: "object", frame: `{"type":"create","data":{"roomId":"R1"}}`, typ: TypeCreate, data: `{"roomId":"R1"}`},
		{name: "missing data", frame: `{"type":"create"}`, typ: TypeCreate, data: `{}`},
		{name: "null data", frame: `{"type":"create","data":null}`, typ: TypeCreate, data: `{}`},
		{name: "unknown type kept", frame: `{"type":"nope","data":{}}`, typ: "nope", data: `{}`},
		{name: "case folded names ignored", frame: `{"Type":"create","DATA":{"roomId":"R1"}}`, typ: "", data: `{}`},
		{name: "string data", frame: `{"type":"create","data":"x"}`, wantErr: true},
		{name: "array data", frame: `{"type":"create","data":[]}`, wantErr: true},
		{name: "invalid json", frame: `{"type":`, wantErr: true},
		{name: "empty frame", frame: ``, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := Decode([]byte(tc.frame))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Decode(%s) should fail", tc.frame)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if env.Type != tc.typ || string(env.Data) != tc.data {
				t.Fatalf("env = %s %s, want %s %s", env.Type, env.Data, tc.typ, tc.data)
			}
		})
	}
}

func TestForwardedPayloadOmitsAbsentRawFields(t *testing.T) {
	raw, err := json.Marshal(DanmakuBroadcast{Message: "hi", Username: "c", UserID: "u_C"})
	if err != nil {
		t.Fatal(err)
	}

	if want := `{"message":"hi","username":"c","userId":"u_C"}`; string(raw) != want {
		t.Fatalf("raw = %s, want %s", raw, want)
	}
}
