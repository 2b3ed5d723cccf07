package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	rc6 "github.com/CampNowhere/golang-rc6"
	"github.com/sem-hub/chatcrypt/internal/configs"
	"github.com/sem-hub/chatcrypt/internal/crypt"
	"github.com/sem-hub/chatcrypt/internal/crypt/engines"
	"github.com/sem-hub/chatcrypt/internal/crypt/modes"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Reference RC6 with a precomputed key schedule, to show what the per-call
// schedule costs.
const referenceName = "rc6-ref-256-ecb"

var (
	password   = []byte("32 bytes string for password 123")
	sizeKB     int
	plotFile   string
	configFile string
)

type result struct {
	name    string
	kind    string
	encrypt time.Duration
	decrypt time.Duration
}

func init() {
	flag.IntVar(&sizeKB, "size", 256, "Plaintext size in KB.")
	flag.StringVar(&configFile, "config", "", "Path to config file (log levels).")
	flag.StringVar(&plotFile, "plot", "", "Write a bar chart of throughput to this PNG/SVG/PDF file.")
}

func engineStrings() []string {
	names := []string{}
	for _, engineName := range engines.EngineList {
		engine, err := crypt.CreateEngine(engineName)
		if err != nil {
			continue
		}
		for _, size := range engine.GetKeySizes() {
			for _, mode := range modes.ModeList {
				if !modes.IsModeSupported(mode) {
					continue
				}
				names = append(names, engineName+"-"+strconv.Itoa(size)+"-"+string(mode))
			}
		}
	}
	return names
}

func benchSecrets(name string, plaintext []byte) (result, error) {
	s, err := crypt.NewSecrets(name, password)
	if err != nil {
		return result{}, err
	}
	r := result{name: s.String(), kind: s.Engine.GetType()}
	start := time.Now()
	cipherText, err := s.Encrypt(plaintext)
	r.encrypt = time.Since(start)
	if err != nil {
		return r, err
	}
	start = time.Now()
	_, err = s.Decrypt(cipherText)
	r.decrypt = time.Since(start)
	return r, err
}

func benchReference(plaintext []byte) result {
	c := rc6.NewCipher(append([]byte(nil), password...))
	n := len(plaintext) - len(plaintext)%16
	out := make([]byte, n)
	back := make([]byte, n)

	r := result{name: referenceName, kind: "block"}
	start := time.Now()
	for i := 0; i < n; i += 16 {
		c.Encrypt(out[i:i+16], plaintext[i:i+16])
	}
	r.encrypt = time.Since(start)
	start = time.Now()
	for i := 0; i < n; i += 16 {
		c.Decrypt(back[i:i+16], out[i:i+16])
	}
	r.decrypt = time.Since(start)
	return r
}

func mbps(size int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(size) / (1024 * 1024) / d.Seconds()
}

func printResults(title string, results []result, size int) {
	fmt.Println(title)
	for _, r := range results {
		fmt.Printf("Engine: %-26s encrypt: %-14s (%.2f MB/s) decrypt: %-14s (%.2f MB/s) (type): %s\n",
			r.name, r.encrypt, mbps(size, r.encrypt), r.decrypt, mbps(size, r.decrypt), r.kind)
	}
}

func savePlot(results []result, size int, file string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Throughput, %d KB", size/1024)
	p.Y.Label.Text = "MB/s"

	enc := make(plotter.Values, len(results))
	dec := make(plotter.Values, len(results))
	names := make([]string, len(results))
	for i, r := range results {
		enc[i] = mbps(size, r.encrypt)
		dec[i] = mbps(size, r.decrypt)
		names[i] = r.name
	}

	w := vg.Points(6)
	encBars, err := plotter.NewBarChart(enc, w)
	if err != nil {
		return err
	}
	encBars.Color = plotutil.Color(0)
	encBars.Offset = -w / 2
	decBars, err := plotter.NewBarChart(dec, w)
	if err != nil {
		return err
	}
	decBars.Color = plotutil.Color(1)
	decBars.Offset = w / 2

	p.Add(encBars, decBars)
	p.Legend.Add("encrypt", encBars)
	p.Legend.Add("decrypt", decBars)
	p.Legend.Top = true
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 2

	return p.Save(vg.Length(len(results))*3*w+2*vg.Inch, 5*vg.Inch, file)
}

func main() {
	flag.Parse()
	if configFile != "" {
		if _, err := configs.LoadConfigFile(configFile); err != nil {
			fmt.Println("Error loading config file:", err)
			os.Exit(1)
		}
	}

	plaintext := make([]byte, sizeKB*1024)
	if _, err := rand.Read(plaintext); err != nil {
		fmt.Println("Error generating plaintext:", err)
		os.Exit(1)
	}

	results := []result{}
	for _, name := range engineStrings() {
		fmt.Println("Benchmarking engine:", name)
		r, err := benchSecrets(name, plaintext)
		if err != nil {
			fmt.Println("Error with engine", name, ":", err)
			continue
		}
		results = append(results, r)
	}
	results = append(results, benchReference(plaintext))

	sort.Slice(results, func(i, j int) bool {
		return results[i].name < results[j].name
	})
	printResults("Results:", results, len(plaintext))

	byEncrypt := append([]result(nil), results...)
	sort.Slice(byEncrypt, func(i, j int) bool {
		return byEncrypt[i].encrypt < byEncrypt[j].encrypt
	})
	printResults("Sorted by encrypt time:", byEncrypt, len(plaintext))

	byDecrypt := append([]result(nil), results...)
	sort.Slice(byDecrypt, func(i, j int) bool {
		return byDecrypt[i].decrypt < byDecrypt[j].decrypt
	})
	printResults("Sorted by decrypt time:", byDecrypt, len(plaintext))

	if plotFile != "" {
		if err := savePlot(results, len(plaintext), plotFile); err != nil {
			fmt.Println("Error saving plot:", err)
			os.Exit(1)
		}
		fmt.Println("Plot saved to", plotFile)
	}
}
