package bridge

import (
	"errors"
	"testing"
	"time"

	"balatro-bridge/jsonval"
	"balatro-bridge/protocol"
)

// fakeTransport scripts transport behavior per stage.
type fakeTransport struct {
	connected  bool
	sendErr    error
	recvLine   string
	recvErr    error
	closeCalls int
	sentLines  []string
}

func (f *fakeTransport) Connect() error  { f.connected = true; return nil }
func (f *fakeTransport) Connected() bool { return f.connected }
func (f *fakeTransport) Close() error    { f.closeCalls++; f.connected = false; return nil }

func (f *fakeTransport) SendLine(line string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sentLines = append(f.sentLines, line)
	return nil
}

func (f *fakeTransport) ReceiveLine() (string, error) {
	return f.recvLine, f.recvErr
}

func wantStage(t *testing.T, err error, stage Stage) *ExchangeError {
	t.Helper()
	var ee *ExchangeError
	if !errors.As(err, &ee) {
		t.Fatalf("want *ExchangeError, got %T: %v", err, err)
	}
	if ee.Stage != stage {
		t.Fatalf("want stage %q, got %q (%v)", stage, ee.Stage, err)
	}
	return ee
}

func TestClient_NotConnected(t *testing.T) {
	c := NewClient(&fakeTransport{connected: false})
	_, err := c.Exchange(jsonval.NewTable())
	ee := wantStage(t, err, StageNotConnected)
	if !errors.Is(ee, ErrNotConnected) {
		t.Fatalf("cause should unwrap to ErrNotConnected, got %v", ee.Cause)
	}
}

func TestClient_EncodeFailureSkipsSend(t *testing.T) {
	ft := &fakeTransport{connected: true}
	c := NewClient(ft)

	cyclic := jsonval.NewTable()
	cyclic.SetString("self", cyclic)
	_, err := c.Exchange(cyclic)
	wantStage(t, err, StageEncode)
	if len(ft.sentLines) != 0 {
		t.Fatal("encode failure must not reach the wire")
	}
	if ft.closeCalls != 0 {
		t.Fatal("encode failure must not close the connection")
	}
}

func TestClient_SendFailureClosesEagerly(t *testing.T) {
	ft := &fakeTransport{connected: true, sendErr: errors.New("broken pipe")}
	c := NewClient(ft)
	_, err := c.Exchange(jsonval.NewTable())
	wantStage(t, err, StageSend)
	if ft.closeCalls != 1 {
		t.Fatalf("send failure should close eagerly, closeCalls=%d", ft.closeCalls)
	}
}

func TestClient_ReceiveTimeoutKeepsConnection(t *testing.T) {
	ft := &fakeTransport{connected: true, recvErr: ErrTimeout}
	c := NewClient(ft)
	_, err := c.Exchange(jsonval.NewTable())
	ee := wantStage(t, err, StageReceive)
	if !errors.Is(ee, ErrTimeout) {
		t.Fatalf("cause should unwrap to ErrTimeout, got %v", ee.Cause)
	}
	if ft.closeCalls != 0 {
		t.Fatal("timeout must not close the connection")
	}
}

func TestClient_ReceiveHardFailureCloses(t *testing.T) {
	ft := &fakeTransport{connected: true, recvErr: ErrClosed}
	c := NewClient(ft)
	_, err := c.Exchange(jsonval.NewTable())
	wantStage(t, err, StageReceive)
	if ft.closeCalls != 1 {
		t.Fatalf("hard receive failure should close, closeCalls=%d", ft.closeCalls)
	}
}

func TestClient_DecodeFailure(t *testing.T) {
	ft := &fakeTransport{connected: true, recvLine: `{"action_type":`}
	c := NewClient(ft)
	_, err := c.Exchange(jsonval.NewTable())
	ee := wantStage(t, err, StageDecode)
	var pe *jsonval.ParseError
	if !errors.As(ee.Cause, &pe) {
		t.Fatalf("decode cause should be a ParseError, got %v", ee.Cause)
	}
	if ft.closeCalls != 0 {
		t.Fatal("a decode failure is not a transport failure")
	}
}

func TestClient_ExchangeScenario(t *testing.T) {
	host, port := startLineServer(t, func(line string) string {
		if line != `{"ante":1,"money":4,"hand_size":8}` {
			t.Errorf("unexpected request line %q", line)
		}
		return `{"action_type":"discard","card_indices":[0,2,5]}`
	})
	c := NewClient(NewConn(host, port, time.Second, time.Second))
	defer c.Close()
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect err: %v", err)
	}

	req := jsonval.NewTable()
	req.SetString("ante", float64(1))
	req.SetString("money", float64(4))
	req.SetString("hand_size", float64(8))

	resp, err := c.Exchange(req)
	if err != nil {
		t.Fatalf("Exchange err: %v", err)
	}
	action, err := protocol.ParseAction(resp)
	if err != nil {
		t.Fatalf("ParseAction err: %v", err)
	}
	if action.Type != protocol.ActionDiscard {
		t.Fatalf("action type = %q", action.Type)
	}
	want := []int{0, 2, 5}
	if len(action.CardIndices) != len(want) {
		t.Fatalf("card indices = %v", action.CardIndices)
	}
	for i, v := range want {
		if action.CardIndices[i] != v {
			t.Fatalf("card indices = %v, want %v", action.CardIndices, want)
		}
	}
}

func TestClient_ReconnectAfterPeerRestart(t *testing.T) {
	host, port := startLineServer(t, func(line string) string {
		return `{"action_type":"wait"}`
	})

	c := NewClient(NewConn(host, port, time.Second, time.Second))
	defer c.Close()
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect err: %v", err)
	}
	// Force a mid-session failure, then reconnect lazily as the loop would.
	if err := c.Close(); err != nil {
		t.Fatalf("Close err: %v", err)
	}
	if c.Connected() {
		t.Fatal("should be disconnected")
	}
	_, err := c.Exchange(jsonval.NewTable())
	wantStage(t, err, StageNotConnected)

	if err := c.Connect(); err != nil {
		t.Fatalf("reconnect err: %v", err)
	}
	resp, err := c.Exchange(jsonval.NewTable())
	if err != nil {
		t.Fatalf("Exchange after reconnect err: %v", err)
	}
	tbl, ok := resp.(*jsonval.Table)
	if !ok {
		t.Fatalf("response type %T", resp)
	}
	v, _ := tbl.GetString("action_type")
	if got, _ := v.(string); got != "wait" {
		t.Fatalf("action_type = %q", got)
	}
}
