package testutils

import (
	"bytes"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/onsi/gomega"
	"github.com/technopolitica/fleet-live/internal/domain"
	"github.com/technopolitica/fleet-live/internal/gateway"
	sharedutils "github.com/technopolitica/fleet-live/test/testutils"
)

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// TestClient talks to a running server over HTTP and websockets.
type TestClient struct {
	baseURL    url.URL
	privateKey rsa.PrivateKey
	token      string
}

func NewTestClient(baseURL url.URL, privateKey rsa.PrivateKey) *TestClient {
	return &TestClient{baseURL: baseURL, privateKey: privateKey}
}

func (client *TestClient) AuthenticateAsDriver(driverID string) {
	client.token = sharedutils.SignToken(&client.privateKey, driverID, "driver")
}

func (client *TestClient) AuthenticateAsManager(managerID string) {
	client.token = sharedutils.SignToken(&client.privateKey, managerID, "manager")
}

func (client *TestClient) AuthenticateWithToken(token string) {
	client.token = token
}

func (client *TestClient) Unauthenticate() {
	client.token = ""
}

func (client *TestClient) Do(method string, path string, body any) Response {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, client.baseURL.JoinPath(path).String(), reader)
	Expect(err).NotTo(HaveOccurred())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if client.token != "" {
		req.Header.Set("Authorization", "Bearer "+client.token)
	}
	res, err := http.DefaultClient.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	Expect(err).NotTo(HaveOccurred())
	return Response{StatusCode: res.StatusCode, Header: res.Header, Body: data}
}

func (client *TestClient) StartTrip(vehicleID string) Response {
	return client.Do(http.MethodPost, "/trips/start", map[string]string{"vehicleId": vehicleID})
}

func (client *TestClient) EndTrip() Response {
	return client.Do(http.MethodPost, "/trips/end", nil)
}

func (client *TestClient) Get(path string) Response {
	return client.Do(http.MethodGet, path, nil)
}

// RealtimeClient is one websocket session.
type RealtimeClient struct {
	conn *websocket.Conn
}

func (client *TestClient) Connect(role string, query url.Values) *RealtimeClient {
	wsURL := client.baseURL
	wsURL.Scheme = "ws"
	wsURL.Path = "/ws"
	if query == nil {
		query = url.Values{}
	}
	query.Set("role", role)
	wsURL.RawQuery = query.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	Expect(err).NotTo(HaveOccurred())
	return &RealtimeClient{conn: conn}
}

func (client *TestClient) Subscribe() *RealtimeClient {
	return client.Connect("subscriber", nil)
}

func (client *TestClient) Publish(vehicleID string) *RealtimeClient {
	return client.Connect("publisher", url.Values{"vehicleId": {vehicleID}})
}

func (rc *RealtimeClient) Send(event string, data any) {
	payload, err := json.Marshal(data)
	Expect(err).NotTo(HaveOccurred())
	Expect(rc.conn.WriteJSON(gateway.Envelope{Event: event, Data: payload})).To(Succeed())
}

func (rc *RealtimeClient) Next() (envelope gateway.Envelope) {
	rc.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	Expect(rc.conn.ReadJSON(&envelope)).To(Succeed())
	return
}

// NextEvent skips frames until one of kind event arrives.
func (rc *RealtimeClient) NextEvent(event string) (envelope gateway.Envelope) {
	for {
		envelope = rc.Next()
		if envelope.Event == event {
			return
		}
	}
}

func (rc *RealtimeClient) Snapshot() (snapshot []domain.VehicleTelemetry) {
	envelope := rc.Next()
	Expect(envelope.Event).To(Equal(gateway.EventFleetSnapshot), fmt.Sprintf("expected a snapshot, got %s", envelope.Event))
	Expect(json.Unmarshal(envelope.Data, &snapshot)).To(Succeed())
	return
}

func (rc *RealtimeClient) Close() error {
	return rc.conn.Close()
}
