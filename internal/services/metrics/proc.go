package metrics

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// cpuPercent samples /proc/stat twice, one second apart, and returns
// the non-idle fraction over that window — the same "average over 1s"
// semantics as the original collector's psutil.cpu_percent(interval=1).
func cpuPercent() (float64, error) {
	first, err := readCPUTotals()
	if err != nil {
		return 0, err
	}
	time.Sleep(time.Second)
	second, err := readCPUTotals()
	if err != nil {
		return 0, err
	}

	totalDelta := second.total - first.total
	idleDelta := second.idle - first.idle
	if totalDelta <= 0 {
		return 0, nil
	}
	return (1 - float64(idleDelta)/float64(totalDelta)) * 100, nil
}

type cpuTotals struct {
	total uint64
	idle  uint64
}

func readCPUTotals() (cpuTotals, error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return cpuTotals{}, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return cpuTotals{}, fmt.Errorf("empty /proc/stat")
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) < 5 || fields[0] != "cpu" {
		return cpuTotals{}, fmt.Errorf("unexpected /proc/stat format")
	}

	var total uint64
	var idle uint64
	for i, field := range fields[1:] {
		value, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			continue
		}
		total += value
		if i == 3 { // idle column
			idle = value
		}
	}
	return cpuTotals{total: total, idle: idle}, nil
}

// ramPercent reads MemTotal/MemAvailable from /proc/meminfo.
func ramPercent() (float64, error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var totalKB, availKB uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "MemTotal:"):
			totalKB = parseMeminfoValue(line)
		case strings.HasPrefix(line, "MemAvailable:"):
			availKB = parseMeminfoValue(line)
		}
	}
	if totalKB == 0 {
		return 0, fmt.Errorf("MemTotal not found in /proc/meminfo")
	}
	usedKB := totalKB - availKB
	return float64(usedKB) / float64(totalKB) * 100, nil
}

func parseMeminfoValue(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	value, _ := strconv.ParseUint(fields[1], 10, 64)
	return value
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
