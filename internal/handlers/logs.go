package handlers

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	helpers "docportal/internal/utils/helpers"
)

// формат поля time у JSON-энкодера логгера (zapcore.ISO8601TimeEncoder)
const logTimeLayout = "2006-01-02T15:04:05.000Z0700"

// AdminLogsHandler показывает логи из папки lumberjack:
// текущий app.log и ротированные app-<timestamp>.log[.gz].
type AdminLogsHandler struct {
	LogDir    string
	Retention int // дней
}

func NewAdminLogsHandler(dir string) *AdminLogsHandler {
	return &AdminLogsHandler{LogDir: dir, Retention: 7}
}

type logLine struct {
	raw   []byte
	level string
	at    time.Time
}

// ListDays
// @Summary      Доступные дни логов
// @Description  Даты (YYYY-MM-DD) за последние дни хранения, за которые есть записи.
// @Tags         admin-logs
// @Security     ApiKeyAuth
// @Produce      json
// @Success      200 {object} helpers.Response
// @Failure      401 {object} helpers.Response
// @Router       /api/admin/logs/days [get]
func (h *AdminLogsHandler) ListDays(w http.ResponseWriter, r *http.Request) {
	from := time.Now().AddDate(0, 0, -h.Retention).Format("2006-01-02")
	seen := map[string]bool{}
	_ = h.forEachLine("", func(l logLine) bool {
		if d := l.at.Format("2006-01-02"); d >= from {
			seen[d] = true
		}
		return true
	})
	days := make([]string, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Strings(days)
	helpers.JSON(w, http.StatusOK, map[string]any{"days": days})
}

// GetLogs
// @Summary      Логи за день
// @Description  Записи за день с фильтрами по уровню и подстроке, постранично.
// @Tags         admin-logs
// @Security     ApiKeyAuth
// @Produce      json
// @Param        day     query  string true  "Дата (YYYY-MM-DD)"
// @Param        level   query  string false "CSV уровней: debug,info,warn,error"
// @Param        q       query  string false "Поиск по подстроке"
// @Param        limit   query  int    false "Лимит (по умолч. 200, макс. 1000)"
// @Param        cursor  query  int    false "Сколько совпадений пропустить"
// @Success      200 {object} helpers.Response
// @Failure      400 {object} helpers.Response
// @Router       /api/admin/logs [get]
func (h *AdminLogsHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	day := q.Get("day")
	if !reDay.MatchString(day) {
		helpers.Error(w, http.StatusBadRequest, "bad day")
		return
	}

	levels := toUpperSet(q.Get("level"))
	var qre *regexp.Regexp
	if s := strings.TrimSpace(q.Get("q")); s != "" {
		qre = regexp.MustCompile("(?i)" + regexp.QuoteMeta(s))
	}
	limit := clampAtoi(q.Get("limit"), 200, 1, 1000)
	cursor := clampAtoi(q.Get("cursor"), 0, 0, 10_000_000)

	skipped := 0
	items := make([]json.RawMessage, 0)
	err := h.forEachLine(day, func(l logLine) bool {
		if len(levels) > 0 && !levels[l.level] {
			return true
		}
		if qre != nil && !qre.Match(l.raw) {
			return true
		}
		if skipped < cursor {
			skipped++
			return true
		}
		items = append(items, append([]byte{}, l.raw...))
		return len(items) < limit
	})
	if err != nil {
		helpers.Error(w, http.StatusInternalServerError, "не удалось прочитать логи")
		return
	}

	helpers.JSON(w, http.StatusOK, map[string]any{
		"day":         day,
		"items":       items,
		"next_cursor": cursor + len(items),
	})
}

// Stats
// @Summary      Статистика логов по часам
// @Description  Количество записей по уровням для каждого часа дня.
// @Tags         admin-logs
// @Security     ApiKeyAuth
// @Produce      json
// @Param        day query string true "Дата (YYYY-MM-DD)"
// @Success      200 {object} helpers.Response
// @Failure      400 {object} helpers.Response
// @Router       /api/admin/logs/stats [get]
func (h *AdminLogsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	if !reDay.MatchString(day) {
		helpers.Error(w, http.StatusBadRequest, "bad day")
		return
	}

	stats := make(map[int]map[string]int, 24)
	for hr := 0; hr < 24; hr++ {
		stats[hr] = map[string]int{}
	}
	_ = h.forEachLine(day, func(l logLine) bool {
		stats[l.at.Hour()][l.level]++
		return true
	})

	helpers.JSON(w, http.StatusOK, map[string]any{"day": day, "stats": stats})
}

var reDay = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// logFiles возвращает ротированные файлы по порядку, затем текущий app.log.
func (h *AdminLogsHandler) logFiles() ([]string, error) {
	entries, err := os.ReadDir(h.LogDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	current := ""
	for _, e := range entries {
		name := e.Name()
		switch {
		case e.IsDir():
		case name == "app.log":
			current = filepath.Join(h.LogDir, name)
		case strings.HasPrefix(name, "app-") && (strings.HasSuffix(name, ".log") || strings.HasSuffix(name, ".log.gz")):
			files = append(files, filepath.Join(h.LogDir, name))
		}
	}
	sort.Strings(files)
	if current != "" {
		files = append(files, current)
	}
	return files, nil
}

// forEachLine обходит JSON-строки логов; при day == "" без фильтра по дате.
func (h *AdminLogsHandler) forEachLine(day string, handle func(logLine) bool) error {
	files, err := h.logFiles()
	if err != nil {
		return err
	}
	for _, path := range files {
		if !scanFile(path, day, handle) {
			return nil
		}
	}
	return nil
}

func scanFile(path, day string, handle func(logLine) bool) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return true
		}
		defer gz.Close()
		reader = gz
	}

	sc := bufio.NewScanner(reader)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var rec struct {
			Level string `json:"level"`
			Time  string `json:"time"`
		}
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			continue
		}
		if day != "" && !strings.HasPrefix(rec.Time, day) {
			continue
		}
		at, err := time.Parse(logTimeLayout, rec.Time)
		if err != nil {
			continue
		}
		if !handle(logLine{raw: sc.Bytes(), level: strings.ToUpper(rec.Level), at: at}) {
			return false
		}
	}
	return true
}

func toUpperSet(csv string) map[string]bool {
	if csv == "" {
		return nil
	}
	m := map[string]bool{}
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			m[strings.ToUpper(p)] = true
		}
	}
	return m
}

func clampAtoi(s string, def, lo, hi int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
