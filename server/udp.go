package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log"
	"net"
	"sync"

	"wse-engine-go/flight"
	"wse-engine-go/fusion"
	"wse-engine-go/telemetry"
	"wse-engine-go/tracklog"
	"wse-engine-go/web"
	"wse-engine-go/wind"
)

const (
	DefaultPort   = 5554
	MaxPacketSize = 65535
)

// wsState is the JSON shape pushed to websocket clients.
type wsState struct {
	TS     int64   `json:"ts"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Alt    float64 `json:"alt"`
	VE     float64 `json:"vE"`
	VUp    float64 `json:"vUp"`
	VN     float64 `json:"vN"`
	Kl     float64 `json:"kl"`
	Kd     float64 `json:"kd"`
	Roll   float64 `json:"roll"`
	WindE  float64 `json:"windE"`
	WindN  float64 `json:"windN"`
	Aoa    float64 `json:"aoa"`
	AoaOwn float64 `json:"aoaOwn"`
	Mode   int     `json:"mode"`
}

type UdpServer struct {
	conn     *net.UDPConn
	pipeline *fusion.FusionPipeline
	parser   *NMEAParser
	sender   *telemetry.Sender
	webHub   *web.Hub
	track    *tracklog.Writer
	windMgr  *wind.Manager
	running  bool

	lastState *wsState
	mu        sync.Mutex
}

func NewUdpServer(port int, pipeline *fusion.FusionPipeline) (*UdpServer, error) {
	if port == 0 {
		port = DefaultPort
	}
	addr := net.UDPAddr{
		Port: port,
		IP:   net.ParseIP("0.0.0.0"),
	}
	conn, err := net.ListenUDP("udp", &addr)
	if err != nil {
		return nil, err
	}

	conn.SetReadBuffer(256 * 1024)

	return &UdpServer{
		conn:     conn,
		pipeline: pipeline,
		parser:   NewNMEAParser(),
		windMgr:  wind.NewManager(),
	}, nil
}

func (s *UdpServer) SetSender(snd *telemetry.Sender) {
	s.sender = snd
}

func (s *UdpServer) SetWebHub(h *web.Hub) {
	s.webHub = h
}

func (s *UdpServer) SetTrackWriter(w *tracklog.Writer) {
	s.track = w
}

// GetState returns the last fused state pushed to clients, or nil.
func (s *UdpServer) GetState() interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastState
}

// WindAt returns the layered wind fit at an altitude, from the samples
// accumulated during wingsuit flight.
func (s *UdpServer) WindAt(altitude float64) (wind.CircleFitResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windMgr.WindAt(altitude)
}

// WindLayers returns the current wind layers, highest first.
func (s *UdpServer) WindLayers() []*wind.Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windMgr.Layers()
}

func (s *UdpServer) Start() {
	s.running = true
	buf := make([]byte, MaxPacketSize)
	log.Printf("UDP Server listening on %s", s.conn.LocalAddr().String())

	for s.running {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if s.running {
				log.Printf("Read error: %v", err)
			}
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		s.handlePacket(data)
	}
}

func (s *UdpServer) Stop() {
	s.running = false
	s.conn.Close()
	if s.track != nil {
		if err := s.track.Close(); err != nil {
			log.Printf("Track close error: %v", err)
		}
	}
}

// handlePacket splits a datagram into NMEA sentences and feeds each
// completed fix through the pipeline.
func (s *UdpServer) handlePacket(data []byte) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fix, ok := s.parser.Sentence(line)
		if !ok {
			continue
		}
		s.processFix(fix)
	}
}

func (s *UdpServer) processFix(fix *fusion.PositionFix) {
	result, err := s.pipeline.Process(fix)
	if err != nil {
		log.Printf("Fusion error at %d: %v", fix.Millis, err)
		return
	}
	s.publish(result)
}

func (s *UdpServer) publish(result fusion.FusionResult) {
	if s.track != nil {
		if err := s.track.WriteResult(&result); err != nil {
			log.Printf("Track write error: %v", err)
		}
	}

	if s.sender != nil {
		s.sender.Send(telemetry.FormatFusedState(result), telemetry.FlagsForResult(result))
	}

	if result.FlightMode == flight.ModeWingsuit {
		s.mu.Lock()
		s.windMgr.AddDataPoint(wind.PointFromResult(result))
		fit, ok := s.windMgr.WindAt(result.Alt)
		s.mu.Unlock()
		if ok && fit.PointCount >= 3 && s.sender != nil {
			layerWind := fusion.Vector3{X: fit.WindE(), Z: fit.WindN()}
			s.sender.Send(telemetry.FormatWind(result.TimestampMs, result.Alt, layerWind), telemetry.FlagWind)
		}
	}

	state := wsState{
		TS:     result.TimestampMs,
		Lat:    result.Lat,
		Lng:    result.Lng,
		Alt:    result.Alt,
		VE:     result.Velocity.X,
		VUp:    result.Velocity.Y,
		VN:     result.Velocity.Z,
		Kl:     result.Kl,
		Kd:     result.Kd,
		Roll:   result.Roll,
		WindE:  result.Wind.X,
		WindN:  result.Wind.Z,
		Aoa:    result.Aoa,
		AoaOwn: result.OwnAoa,
		Mode:   result.FlightMode,
	}
	s.mu.Lock()
	s.lastState = &state
	s.mu.Unlock()

	if s.webHub != nil {
		if b, err := json.Marshal(&state); err == nil {
			s.webHub.Broadcast(b)
		}
	}
}
