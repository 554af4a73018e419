package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
)

// Default robot bridge configuration.
const (
	DefaultRobotIP   = "10.0.0.239"
	DefaultRobotPort = 8000
)

// RobotIP returns the robot IP from the ROBOT_IP env var.
// Falls back to the provided default if not set.
func RobotIP(defaultIP string) string {
	if ip := os.Getenv("ROBOT_IP"); ip != "" {
		return ip
	}
	return defaultIP
}

// RobotAPIURL returns the robot bridge HTTP base URL.
func RobotAPIURL(robotIP string, port int) string {
	return fmt.Sprintf("http://%s", net.JoinHostPort(robotIP, strconv.Itoa(port)))
}

// RobotAudioURL returns the websocket URL the bridge streams microphone PCM on.
func RobotAudioURL(robotIP string, port int) string {
	return fmt.Sprintf("ws://%s/ws/audio", net.JoinHostPort(robotIP, strconv.Itoa(port)))
}
