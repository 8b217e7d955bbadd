package metrics

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// SystemInfo describes the host the process runs on
type SystemInfo struct {
	Hostname         string
	OS               string
	OSVersion        string
	Arch             string
	GoVersion        string
	CPULogical       int
	TotalMemoryMB    uint64
	InContainer      bool
	ContainerRuntime string
}

// CaptureSystemInfo gathers host details logged and exported at startup
func CaptureSystemInfo() *SystemInfo {
	info := &SystemInfo{
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		CPULogical: runtime.NumCPU(),
		GoVersion:  runtime.Version(),
	}

	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	} else {
		info.Hostname = "unknown"
	}

	info.InContainer, info.ContainerRuntime = detectContainer()
	info.OSVersion = getOSVersion()
	info.TotalMemoryMB = getTotalMemory()

	return info
}

// detectContainer checks if running in a container
func detectContainer() (bool, string) {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true, "docker"
	}

	if _, err := os.Stat("/var/run/secrets/kubernetes.io"); err == nil {
		return true, "kubernetes"
	}

	if data, err := os.ReadFile("/proc/1/cgroup"); err == nil {
		content := string(data)
		switch {
		case strings.Contains(content, "kubepods"):
			return true, "kubernetes"
		case strings.Contains(content, "docker"):
			return true, "docker"
		case strings.Contains(content, "containerd"):
			return true, "containerd"
		}
	}

	return false, ""
}

// getOSVersion reads the distribution name on Linux
func getOSVersion() string {
	if runtime.GOOS != "linux" {
		return runtime.GOOS
	}

	data, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return "Linux (unknown)"
	}

	var name, version string
	for _, line := range strings.Split(string(data), "\n") {
		switch {
		case strings.HasPrefix(line, "PRETTY_NAME="):
			return strings.Trim(strings.TrimPrefix(line, "PRETTY_NAME="), "\"")
		case strings.HasPrefix(line, "NAME="):
			name = strings.Trim(strings.TrimPrefix(line, "NAME="), "\"")
		case strings.HasPrefix(line, "VERSION="):
			version = strings.Trim(strings.TrimPrefix(line, "VERSION="), "\"")
		}
	}
	if name != "" && version != "" {
		return name + " " + version
	}
	if name != "" {
		return name
	}
	return "Linux (unknown)"
}

// getTotalMemory returns total memory in MB, or 0 where unsupported
func getTotalMemory() uint64 {
	if runtime.GOOS != "linux" {
		return 0
	}

	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0
		}
		var memKB uint64
		if _, err := fmt.Sscanf(fields[1], "%d", &memKB); err == nil {
			return memKB / 1024
		}
	}
	return 0
}
