package sensor

import (
	"errors"
	"strings"
	"testing"
)

// livePayload is a captured /current-sample response: two mains lines plus
// the consumption total, which carries no voltage.
const livePayload = `{"channels":[` +
	`{"p_W":359,"q_VAR":-117,"v_V":119.497,"eImp_Ws":100227460449},` +
	`{"p_W":262,"q_VAR":-49,"v_V":119.349,"eImp_Ws":69186339532},` +
	`{"p_W":621,"q_VAR":-166,"eImp_Ws":169413800005}]}`

func TestExtract_LivePayload(t *testing.T) {
	got, err := Extract([]byte(livePayload))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	want := []ChannelReading{
		{Line: Line1, Voltage: 119.497, RealPower: 359, ReactivePower: -117, EnergyImported: 100227460449},
		{Line: Line2, Voltage: 119.349, RealPower: 262, ReactivePower: -49, EnergyImported: 69186339532},
		{Line: LineTotal, Voltage: 0, RealPower: 621, ReactivePower: -166, EnergyImported: 169413800005},
	}

	if len(got.Channels) != len(want) {
		t.Fatalf("got %d readings, want %d", len(got.Channels), len(want))
	}
	for i, w := range want {
		if got.Channels[i] != w {
			t.Errorf("channel %d = %+v, want %+v", i, got.Channels[i], w)
		}
	}
}

func TestExtract_SensorMetadata(t *testing.T) {
	payload := `{"sensorId":"0x0000C47F51019B2A","timestamp":"2023-02-08T21:49:27Z","channels":[` +
		`{"type":"PHASE_A_CONSUMPTION","ch":1,"p_W":100,"q_VAR":1,"v_V":120.1,"eImp_Ws":1},` +
		`{"type":"PHASE_B_CONSUMPTION","ch":2,"p_W":200,"q_VAR":2,"v_V":120.2,"eImp_Ws":2},` +
		`{"type":"CONSUMPTION","ch":3,"p_W":300,"q_VAR":3,"eImp_Ws":3}]}`

	got, err := Extract([]byte(payload))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got.SensorID != "0x0000C47F51019B2A" {
		t.Errorf("SensorID = %q, want %q", got.SensorID, "0x0000C47F51019B2A")
	}
	if got.Timestamp != "2023-02-08T21:49:27Z" {
		t.Errorf("Timestamp = %q, want %q", got.Timestamp, "2023-02-08T21:49:27Z")
	}
}

// TestExtract_QuotedNumbers verifies that firmware quoting numeric values
// does not break extraction.
func TestExtract_QuotedNumbers(t *testing.T) {
	payload := `{"channels":[` +
		`{"p_W":"359","q_VAR":"-117","v_V":"119.497","eImp_Ws":"100227460449"},` +
		`{"p_W":262,"q_VAR":-49,"v_V":119.349,"eImp_Ws":69186339532},` +
		`{"p_W":621,"q_VAR":-166,"eImp_Ws":169413800005}]}`

	got, err := Extract([]byte(payload))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	first := got.Channels[0]
	if first.RealPower != 359 || first.ReactivePower != -117 || first.Voltage != 119.497 || first.EnergyImported != 100227460449 {
		t.Errorf("quoted channel decoded as %+v", first)
	}
}

// TestExtract_ExtraChannelsIgnored verifies that payloads with more than
// three channels still extract the leading three.
func TestExtract_ExtraChannelsIgnored(t *testing.T) {
	payload := `{"channels":[` +
		`{"p_W":1,"q_VAR":1,"v_V":120,"eImp_Ws":1},` +
		`{"p_W":2,"q_VAR":2,"v_V":120,"eImp_Ws":2},` +
		`{"p_W":3,"q_VAR":3,"eImp_Ws":3},` +
		`{"type":"GENERATION","p_W":4,"q_VAR":4,"eImp_Ws":4}]}`

	got, err := Extract([]byte(payload))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(got.Channels) != 3 {
		t.Errorf("got %d readings, want 3", len(got.Channels))
	}
}

func TestExtract_Malformed(t *testing.T) {
	valid := func(p, q, v, e string) string {
		return `{"p_W":` + p + `,"q_VAR":` + q + `,"v_V":` + v + `,"eImp_Ws":` + e + `}`
	}
	ch := valid("100", "1", "120", "1000")

	tests := []struct {
		name    string
		payload string
		wantIn  string // substring expected in the error text
	}{
		{name: "empty payload", payload: "", wantIn: "empty"},
		{name: "not JSON", payload: "<html>unauthorized</html>", wantIn: ""},
		{name: "truncated JSON", payload: `{"channels":[{"p_W":35`, wantIn: ""},
		{name: "top-level array", payload: `[1,2,3]`, wantIn: ""},
		{name: "no channels key", payload: `{"sensorId":"abc"}`, wantIn: "no channels"},
		{name: "channels null", payload: `{"channels":null}`, wantIn: "no channels"},
		{name: "channels not array", payload: `{"channels":42}`, wantIn: ""},
		{name: "two channels only", payload: `{"channels":[` + ch + `,` + ch + `]}`, wantIn: "at least 3"},
		{name: "missing p_W", payload: `{"channels":[{"q_VAR":1,"v_V":120,"eImp_Ws":1},` + ch + `,` + ch + `]}`, wantIn: `channel 0: missing field "p_W"`},
		{name: "missing q_VAR", payload: `{"channels":[` + ch + `,{"p_W":1,"v_V":120,"eImp_Ws":1},` + ch + `]}`, wantIn: `channel 1: missing field "q_VAR"`},
		{name: "missing eImp_Ws", payload: `{"channels":[` + ch + `,` + ch + `,{"p_W":1,"q_VAR":1}]}`, wantIn: `channel 2: missing field "eImp_Ws"`},
		{name: "missing v_V on line", payload: `{"channels":[{"p_W":1,"q_VAR":1,"eImp_Ws":1},` + ch + `,` + ch + `]}`, wantIn: `channel 0: missing field "v_V"`},
		{name: "p_W out of range", payload: `{"channels":[` + valid("70000", "1", "120", "1") + `,` + ch + `,` + ch + `]}`, wantIn: `field "p_W"`},
		{name: "q_VAR out of range", payload: `{"channels":[` + valid("1", "40000", "120", "1") + `,` + ch + `,` + ch + `]}`, wantIn: `field "q_VAR"`},
		{name: "negative energy", payload: `{"channels":[` + valid("1", "1", "120", "-5") + `,` + ch + `,` + ch + `]}`, wantIn: `field "eImp_Ws"`},
		{name: "field wrong type", payload: `{"channels":[` + valid("true", "1", "120", "1") + `,` + ch + `,` + ch + `]}`, wantIn: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract([]byte(tt.payload))
			if err == nil {
				t.Fatal("Extract succeeded, want error")
			}
			if !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("error %v does not wrap ErrMalformedPayload", err)
			}
			if tt.wantIn != "" && !strings.Contains(err.Error(), tt.wantIn) {
				t.Errorf("error %q does not mention %q", err, tt.wantIn)
			}
		})
	}
}

// TestExtract_TotalVoltageIgnored verifies that a voltage on the total
// channel is tolerated but never read.
func TestExtract_TotalVoltageIgnored(t *testing.T) {
	payload := `{"channels":[` +
		`{"p_W":1,"q_VAR":1,"v_V":120,"eImp_Ws":1},` +
		`{"p_W":2,"q_VAR":2,"v_V":121,"eImp_Ws":2},` +
		`{"p_W":3,"q_VAR":3,"v_V":999,"eImp_Ws":3}]}`

	got, err := Extract([]byte(payload))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got.Channels[2].Voltage != 0 {
		t.Errorf("total channel voltage = %v, want 0 (never read)", got.Channels[2].Voltage)
	}
}

func TestLine_String(t *testing.T) {
	tests := []struct {
		line Line
		want string
	}{
		{Line1, "L1"},
		{Line2, "L2"},
		{LineTotal, "TOTAL"},
		{Line(9), "Line(9)"},
	}
	for _, tt := range tests {
		if got := tt.line.String(); got != tt.want {
			t.Errorf("Line(%d).String() = %q, want %q", int(tt.line), got, tt.want)
		}
	}
}
