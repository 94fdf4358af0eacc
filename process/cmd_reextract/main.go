// cmd_reextract retries reference extraction for payments stuck in
// utr_detection_failed that are still inside their expiry window. It applies
// a more aggressive preprocessing pass than the live pipeline before giving
// up on a screenshot. Run it from cron after Tesseract or pattern updates.
package main

import (
	"bytes"
	"database/sql"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/YathinChandra64/siri-taste-craft-sub000/pkg/extract"
	"github.com/YathinChandra64/siri-taste-craft-sub000/pkg/ocr"

	"github.com/disintegration/imaging"
	_ "github.com/lib/pq"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report what would change without writing")
	flag.Parse()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	engine := ocr.NewEngine()
	defer engine.Close()

	rows, err := db.Query(`SELECT id, order_id, screenshot_path FROM payments WHERE status='utr_detection_failed' AND expires_at > $1`, time.Now())
	if err != nil {
		log.Fatalf("query: %v", err)
	}
	defer rows.Close()

	retried, recovered := 0, 0
	for rows.Next() {
		var id, orderID int64
		var path string
		if err := rows.Scan(&id, &orderID, &path); err != nil {
			log.Printf("scan: %v", err)
			continue
		}
		retried++

		raw, err := os.ReadFile(path)
		if err != nil {
			log.Printf("read %s: %v", path, err)
			continue
		}
		norm, err := ocr.Preprocess(raw)
		if err != nil {
			log.Printf("preprocess payment=%d: %v", id, err)
			continue
		}
		// second-chance pass: harder sharpen + contrast before recognizing
		if img, derr := imaging.Decode(bytes.NewReader(norm)); derr == nil {
			img2 := imaging.Sharpen(img, 2.0)
			img2 = imaging.AdjustContrast(img2, 30)
			var buf bytes.Buffer
			if eerr := imaging.Encode(&buf, img2, imaging.PNG); eerr == nil {
				norm = buf.Bytes()
			}
		}

		rec, err := engine.Recognize(norm)
		if err != nil {
			log.Printf("ocr payment=%d: %v", id, err)
			continue
		}
		res := extract.Extract(rec.Text)
		if !res.Found {
			log.Printf("still no reference payment=%d order=%d (%s)", id, orderID, res.Reason)
			continue
		}
		ref := strings.ToUpper(strings.TrimSpace(res.Reference))

		// skip references already backing a live payment
		var cnt int
		err = db.QueryRow(`SELECT count(*) FROM payments WHERE (utr_number=$1 OR manual_reference=$1) AND status IN ('pending_verification','verified') AND id<>$2`, ref, id).Scan(&cnt)
		if err != nil || cnt > 0 {
			log.Printf("reference %s for payment=%d already in use (or lookup failed: %v)", ref, id, err)
			continue
		}

		if *dryRun {
			log.Printf("would recover payment=%d order=%d ref=%s conf=%d", id, orderID, ref, res.Confidence)
			recovered++
			continue
		}
		_, err = db.Exec(`UPDATE payments SET status='pending_verification', utr_number=$1, extract_format=$2, extract_confidence=$3, ocr_confidence=$4, detection_failed_why='' WHERE id=$5 AND status='utr_detection_failed'`,
			ref, string(res.Format), res.Confidence, rec.Confidence, id)
		if err != nil {
			log.Printf("update payment=%d: %v", id, err)
			continue
		}
		recovered++
		log.Printf("recovered payment=%d order=%d ref=%s conf=%d", id, orderID, ref, res.Confidence)
	}
	log.Printf("done: retried=%d recovered=%d", retried, recovered)
}
