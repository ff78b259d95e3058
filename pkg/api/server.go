// Package api provides the REST API server for multisampler
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gitlab.com/gomidi/midi/v2"

	"github.com/james-see/multisampler/pkg/audiodev"
	"github.com/james-see/multisampler/pkg/midinote"
	"github.com/james-see/multisampler/pkg/sequencer"
)

// @title Multisampler API
// @version 1.0
// @description API for previewing auto-sampling schedules and inspecting audio and MIDI devices
// @host localhost:8080
// @BasePath /api/v1

// StartServer starts the API server on the specified port. PortAudio
// must already be initialized.
func StartServer(port int) error {
	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.POST("/schedule", handleSchedule)
		v1.GET("/pitch/:name", handlePitch)
		v1.GET("/hosts", listHosts)
		v1.GET("/devices", listDevices)
		v1.GET("/midi-ports", listMIDIPorts)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r.Run(fmt.Sprintf(":%d", port))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "multisampler",
	})
}

// ScheduleRequest describes one sweep to preview.
type ScheduleRequest struct {
	Start          *uint8 `json:"start"`
	End            *uint8 `json:"end"`
	Step           uint8  `json:"step"`
	VelocityLevels uint8  `json:"velocityLevels"`
	RoundRobins    uint8  `json:"roundRobins"`
	LengthMs       uint32 `json:"lengthMs"`
	GapMs          uint32 `json:"gapMs"`
	SampleRate     uint32 `json:"sampleRate"`
}

// ScheduleEvent is one entry of the previewed schedule.
type ScheduleEvent struct {
	Position uint64 `json:"position"`
	Pitch    uint8  `json:"pitch"`
	Note     string `json:"note"`
	Velocity uint8  `json:"velocity"`
	State    string `json:"state"`
}

// handleSchedule godoc
// @Summary Preview a sampling schedule
// @Description Computes the full note schedule for a sweep configuration without touching any device
// @Tags schedule
// @Accept json
// @Produce json
// @Param request body ScheduleRequest true "Sweep configuration"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/schedule [post]
func handleSchedule(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	cfg := sequencer.DefaultConfig()
	if req.Start != nil {
		cfg.Start = *req.Start
	}
	if req.End != nil {
		cfg.End = *req.End
	}
	if req.Step != 0 {
		cfg.Step = req.Step
	}
	if req.VelocityLevels != 0 {
		cfg.VelocityLevels = req.VelocityLevels
	}
	if req.RoundRobins != 0 {
		cfg.RoundRobins = req.RoundRobins
	}
	if req.LengthMs != 0 {
		cfg.Length = time.Duration(req.LengthMs) * time.Millisecond
	}
	if req.GapMs != 0 {
		cfg.Gap = time.Duration(req.GapMs) * time.Millisecond
	}
	sampleRate := req.SampleRate
	if sampleRate == 0 {
		sampleRate = audiodev.PreferredSampleRate
	}

	seq, err := sequencer.New(cfg, sampleRate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events := make([]ScheduleEvent, 0)
	for position, note := range seq.Events() {
		events = append(events, ScheduleEvent{
			Position: position,
			Pitch:    note.Pitch,
			Note:     midinote.Pitch(note.Pitch).String(),
			Velocity: note.Velocity,
			State:    note.State.String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"sampleRate": sampleRate,
		"events":     events,
	})
}

// handlePitch godoc
// @Summary Parse a pitch
// @Description Parses a MIDI note number or note name and returns both representations
// @Tags schedule
// @Produce json
// @Param name path string true "Pitch, as a number (60) or name (C4)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/pitch/{name} [get]
func handlePitch(c *gin.Context) {
	p, err := midinote.ParsePitch(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"number": uint8(p),
		"name":   p.String(),
	})
}

// listHosts godoc
// @Summary List audio host APIs
// @Description Returns the available PortAudio host APIs
// @Tags devices
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]string
// @Router /api/v1/hosts [get]
func listHosts(c *gin.Context) {
	hosts, err := audiodev.Hosts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hosts": hosts})
}

// listDevices godoc
// @Summary List audio devices
// @Description Returns every audio device with its channel counts and default sample rate
// @Tags devices
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]string
// @Router /api/v1/devices [get]
func listDevices(c *gin.Context) {
	devices, err := audiodev.Devices()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

// listMIDIPorts godoc
// @Summary List MIDI output ports
// @Description Returns the available MIDI output ports
// @Tags devices
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/midi-ports [get]
func listMIDIPorts(c *gin.Context) {
	ports := make([]map[string]interface{}, 0)
	for i, port := range midi.GetOutPorts() {
		ports = append(ports, map[string]interface{}{
			"id":   i,
			"name": port.String(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"midiPorts": ports})
}
