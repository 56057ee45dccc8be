package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"kuanb/indoor-router/config"
	"kuanb/indoor-router/geom"
	"kuanb/indoor-router/indoor"
	"kuanb/indoor-router/matching"
	"kuanb/indoor-router/routing"
)

type result struct {
	Matcher string   `json:"matcher"`
	Points  int      `json:"points"`
	Labels  []string `json:"labels"`
	Decoded []string `json:"decoded,omitempty"`
}

func main() {
	configFile := flag.String("config", "", "YAML configuration file (optional)")
	buildingFile := flag.String("building", "", "building file (.geojson or .osm.pbf)")
	trajFile := flag.String("trajectory", "", "GeoJSON trajectory file")
	matcher := flag.String("matcher", "hmm", "direct or hmm")
	resample := flag.Float64("resample", 0, "resample the trajectory to this step before matching (meters)")
	decode := flag.Bool("decode", false, "also print the Viterbi path")
	asJSON := flag.Bool("json", false, "print JSON instead of one label per line")
	flag.Parse()

	config.InitLogging()
	log.SetOutput(os.Stderr)

	var (
		cfg *config.AppConfig
		err error
	)
	if *configFile != "" {
		cfg, err = config.Load(*configFile)
	} else {
		cfg, err = config.Parse([]byte(fmt.Sprintf("building: {path: %q}\n", *buildingFile)))
	}
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *buildingFile != "" {
		cfg.Building.Path = *buildingFile
		cfg.Building.Format = config.FormatFromPath(*buildingFile)
	}
	if *trajFile == "" {
		log.Fatal("-trajectory is required")
	}

	building, err := cfg.Building.Load()
	if err != nil {
		log.Fatalf("Failed to load building: %v", err)
	}
	data, err := os.ReadFile(*trajFile)
	if err != nil {
		log.Fatalf("Failed to read trajectory: %v", err)
	}
	traj, err := geom.DecodeTrajectory(data)
	if err != nil {
		log.Fatalf("Invalid trajectory %s: %v", *trajFile, err)
	}
	if *resample > 0 {
		if traj, err = routing.NewRouter(building).Resample(traj, *resample, false); err != nil {
			log.Fatalf("Failed to resample: %v", err)
		}
	}
	log.Printf("Matching %d points against %d cells", len(traj), building.Len())

	res := result{Matcher: *matcher, Points: len(traj)}
	switch *matcher {
	case "direct":
		res.Labels = matching.Labels(building, matching.NewDirectMatcher(building).Match(traj))
	case "hmm":
		m, err := matching.NewHMMMatcher(building, cfg.Matcher.Options())
		if err != nil {
			log.Fatalf("Failed to build matcher: %v", err)
		}
		res.Labels = matching.Labels(building, m.Match(traj))
		if *decode {
			res.Decoded = decoded(building, m)
		}
	default:
		log.Fatalf("Unknown matcher %q", *matcher)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			log.Fatal(err)
		}
		return
	}
	fmt.Println(strings.Join(res.Labels, "\n"))
	if len(res.Decoded) > 0 {
		fmt.Println("# viterbi")
		fmt.Println(strings.Join(res.Decoded, "\n"))
	}
}

func decoded(b *indoor.Building, m *matching.HMMMatcher) []string {
	path, err := m.Decode()
	if err != nil {
		log.Fatalf("Failed to decode: %v", err)
	}
	return matching.Labels(b, path)
}
