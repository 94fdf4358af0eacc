// cmd_intake drives the payment pipeline over screenshots dropped into a
// directory out-of-band (support desk forwards, WhatsApp exports). Files are
// named order<ID>.<ext>; each one is submitted, or resubmitted when a
// record already exists, for that order. Optional watch mode keeps the
// process alive and picks up new drops with a debounce.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/YathinChandra64/siri-taste-craft-sub000/models"
	"github.com/YathinChandra64/siri-taste-craft-sub000/pkg/ocr"
	"github.com/YathinChandra64/siri-taste-craft-sub000/pkg/payment"
)

var verbose bool

func main() {
	dirFlag := flag.String("dir", "intake", "directory to scan for dropped screenshots")
	watch := flag.Bool("watch", false, "watch directory for new files")
	workers := flag.Int("workers", 0, "worker pool size (default NumCPU)")
	flag.BoolVar(&verbose, "verbose", false, "verbose per-file logging")
	flag.Parse()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN must be set in environment to run this tool")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	engine := ocr.NewEngine()
	defer engine.Close()
	mgr := payment.NewManager(
		payment.NewStore(db),
		payment.NewOrderStore(db),
		&payment.ScreenshotPipeline{Engine: engine},
		payment.LogNotifier{},
		payment.Config{},
	)

	files := listScreenshotFiles(*dirFlag)
	log.Printf("Scanning %d files (workers=%d)", len(files), effectiveWorkers(*workers))
	runWorkerPool(*dirFlag, db, mgr, files, effectiveWorkers(*workers))

	if *watch {
		if err := watchDirectory(*dirFlag, db, mgr, effectiveWorkers(*workers)); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

func listScreenshotFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func isSupportedExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp":
		return true
	}
	return false
}

// orderIDFromName parses the order<ID> drop-file convention.
func orderIDFromName(name string) (uint, bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.TrimPrefix(strings.ToLower(base), "order")
	id, err := strconv.ParseUint(base, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func watchDirectory(dir string, db *gorm.DB, mgr *payment.Manager, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", dir)

	fileCh := make(chan string, 256)
	go func() {
		// simple debounce map of pending files
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					close(fileCh)
					return
				}
				if ev.Op&fsnotify.Create == fsnotify.Create {
					name := filepath.Base(ev.Name)
					if !isSupportedExt(name) {
						continue
					}
					pending[name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > 300*time.Millisecond { // stable
						fileCh <- name
						delete(pending, name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					close(fileCh)
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	go runWorkerPool(dir, db, mgr, nil, workers, fileCh)
	// block forever (Ctrl+C to exit)
	select {}
}

// worker pool orchestrator
func runWorkerPool(dir string, db *gorm.DB, mgr *payment.Manager, initial []string, workers int, extraCh ...<-chan string) {
	fileCh := make(chan string, 1024)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range fileCh {
				processDroppedFile(dir, name, db, mgr)
			}
		}()
	}
	go func() {
		for _, f := range initial {
			fileCh <- f
		}
		for _, ch := range extraCh {
			go func(c <-chan string) {
				for n := range c {
					fileCh <- n
				}
			}(ch)
		}
		if len(extraCh) == 0 {
			close(fileCh)
		}
	}()
	if len(extraCh) == 0 {
		wg.Wait()
	}
}

// processDroppedFile submits (or resubmits) one dropped screenshot for the
// order encoded in its name. The file is moved into the regular screenshot
// store first so the payment record points at a stable path.
func processDroppedFile(dir, name string, db *gorm.DB, mgr *payment.Manager) {
	orderID, ok := orderIDFromName(name)
	if !ok {
		logV("SKIP unparseable name %s", name)
		return
	}
	var order models.Order
	if err := db.First(&order, orderID).Error; err != nil {
		log.Printf("SKIP %s: order %d not found", name, orderID)
		return
	}

	stored, err := moveToStore(filepath.Join(dir, name), orderID)
	if err != nil {
		log.Printf("ERROR store %s: %v", name, err)
		return
	}

	rec, err := mgr.Submit(orderID, order.UserID, stored)
	if err == payment.ErrPaymentExists {
		rec, err = mgr.Resubmit(orderID, stored)
	}
	if err != nil {
		log.Printf("ERROR order=%d file=%s: %v", orderID, name, err)
		return
	}
	log.Printf("PROCESSED order=%d payment=%d status=%s ref=%q attempts=%d", orderID, rec.ID, rec.Status, payment.Reference(rec), rec.AttemptCount)
}

// moveToStore relocates a dropped file under UPLOAD_BASE/screenshots with
// the same naming the upload handler uses. Rename first, copy+remove when
// the drop dir is on another filesystem.
func moveToStore(src string, orderID uint) (string, error) {
	base := os.Getenv("UPLOAD_BASE")
	if base == "" {
		base = "uploads"
	}
	destDir := filepath.Join(base, "screenshots")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(destDir, "order"+strconv.FormatUint(uint64(orderID), 10)+"_"+strconv.FormatInt(time.Now().UnixNano(), 10)+filepath.Ext(src))
	if err := os.Rename(src, dst); err == nil {
		return dst, nil
	}
	in, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, in, 0o644); err != nil {
		return "", err
	}
	_ = os.Remove(src)
	return dst, nil
}
