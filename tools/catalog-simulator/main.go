package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// A stand-in for the upstream catalog API. Serves a deterministic fleet of
// vehicle listings through the same paginated envelope the real API uses,
// with optional overlap between pages, injected failures, and latency, so
// the fetcher's dedup and error paths can be exercised locally.

type vehicle struct {
	ID           string  `json:"id"`
	SellerID     string  `json:"seller_id"`
	SellerName   string  `json:"seller_name"`
	Brand        string  `json:"brand"`
	Model        string  `json:"model"`
	Variant      string  `json:"variant"`
	Color        string  `json:"color"`
	Year         int     `json:"year"`
	Condition    string  `json:"condition"`
	BodyType     string  `json:"body_type"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	MainImageURL string  `json:"main_image_url"`
	Location     string  `json:"location"`
}

type pageEnvelope struct {
	Content    []vehicle `json:"content"`
	TotalPages int       `json:"total_pages"`
	TotalItems int       `json:"total_items"`
}

var (
	brands     = []string{"Toyota", "Honda", "Ford", "Volkswagen", "Hyundai"}
	models     = map[string][]string{"Toyota": {"Corolla", "Yaris"}, "Honda": {"Civic", "Fit"}, "Ford": {"Focus", "Fiesta"}, "Volkswagen": {"Golf", "Polo"}, "Hyundai": {"i30", "Tucson"}}
	colors     = []string{"White", "Black", "Silver", "Blue", "Red"}
	conditions = []string{"new", "used"}
	bodyTypes  = []string{"sedan", "hatchback", "suv"}
)

func main() {
	addr := flag.String("addr", ":9090", "Listen address")
	total := flag.Int("total", 450, "Total number of vehicle listings")
	seed := flag.Int64("seed", 42, "Fleet generation seed")
	overlap := flag.Int("overlap", 0, "Listings repeated from the previous page")
	failRate := flag.Float64("fail-rate", 0, "Probability of a page request failing with 503")
	latency := flag.Duration("latency", 0, "Artificial latency per page request")
	rps := flag.Int("rps", 0, "Requests per second limit, 0 for unlimited")
	flag.Parse()

	fleet := generateFleet(*total, *seed)
	log.Printf("Simulating a catalog of %d listings on %s", len(fleet), *addr)
	log.Printf("Overlap: %d, Fail rate: %.2f, Latency: %s", *overlap, *failRate, *latency)

	var limiter *rate.Limiter
	if *rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(*rps), *rps)
	}

	failRand := rand.New(rand.NewSource(time.Now().UnixNano()))

	http.HandleFunc("GET /v1/vehicles", func(w http.ResponseWriter, r *http.Request) {
		if limiter != nil {
			if err := limiter.Wait(r.Context()); err != nil {
				return
			}
		}
		if *latency > 0 {
			time.Sleep(*latency)
		}
		if *failRate > 0 && failRand.Float64() < *failRate {
			http.Error(w, "simulated upstream failure", http.StatusServiceUnavailable)
			return
		}

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))
		if size < 1 {
			size = 50
		}

		env := slice(fleet, page, size, *overlap)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(env); err != nil {
			log.Printf("encode failed: %v", err)
		}
	})

	log.Fatal(http.ListenAndServe(*addr, nil))
}

// slice cuts one page out of the fleet. With overlap > 0 the page starts that
// many listings before its natural boundary, repeating the tail of the
// previous page the way eventually consistent listing APIs tend to.
func slice(fleet []vehicle, page, size, overlap int) pageEnvelope {
	totalPages := (len(fleet) + size - 1) / size

	start := (page - 1) * size
	if page > 1 {
		start -= overlap
		if start < 0 {
			start = 0
		}
	}
	end := (page-1)*size + size
	if start > len(fleet) {
		start = len(fleet)
	}
	if end > len(fleet) {
		end = len(fleet)
	}

	return pageEnvelope{
		Content:    fleet[start:end],
		TotalPages: totalPages,
		TotalItems: len(fleet),
	}
}

func generateFleet(total int, seed int64) []vehicle {
	rng := rand.New(rand.NewSource(seed))

	sellers := make([]struct{ id, name string }, 12)
	for i := range sellers {
		sellers[i].id = uuid.NewString()
		sellers[i].name = fmt.Sprintf("Dealer %02d", i+1)
	}

	fleet := make([]vehicle, total)
	for i := range fleet {
		brand := brands[rng.Intn(len(brands))]
		model := models[brand][rng.Intn(len(models[brand]))]
		seller := sellers[rng.Intn(len(sellers))]

		fleet[i] = vehicle{
			ID:           fmt.Sprintf("veh-%05d", i+1),
			SellerID:     seller.id,
			SellerName:   seller.name,
			Brand:        brand,
			Model:        model,
			Variant:      []string{"Base", "Sport", "LE"}[rng.Intn(3)],
			Color:        colors[rng.Intn(len(colors))],
			Year:         2016 + rng.Intn(10),
			Condition:    conditions[rng.Intn(len(conditions))],
			BodyType:     bodyTypes[rng.Intn(len(bodyTypes))],
			Price:        float64(8000 + rng.Intn(42000)),
			Currency:     "USD",
			MainImageURL: fmt.Sprintf("https://img.example.com/%05d.jpg", i+1),
			Location:     []string{"Austin, TX", "Denver, CO", "Portland, OR"}[rng.Intn(3)],
		}
	}
	return fleet
}
