package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/booknest/internal/domain/book"
	"github.com/xenking/booknest/internal/domain/catalog"
	"github.com/xenking/booknest/internal/storefront"
)

const help = `Buyruqlar:
  list                 joriy ro'yxat
  category <slug>      kategoriya (all, klassik, zamonaviy, yoshlar, texnik, dostoner, sherlar)
  search <matn>        qidiruv
  cart <id>            savatga qo'shish yoki olib tashlash
  qty <id> <n>         savatdagi miqdor
  fav <id>             sevimlilarga qo'shish yoki olib tashlash
  top [n]              eng yaxshi kitoblar
  more                 keyingi sahifa
  help                 yordam
  quit                 chiqish
`

// Shell reads storefront intents, one per line, and dispatches them.
type Shell struct {
	sf   *storefront.Storefront
	out  io.Writer
	topN int
}

// NewShell returns a Shell driving sf. Prompts and command errors go to out;
// storefront output goes to the storefront's renderer.
func NewShell(sf *storefront.Storefront, out io.Writer, topN int) *Shell {
	if topN <= 0 {
		topN = 5
	}
	return &Shell{sf: sf, out: out, topN: topN}
}

// Run loads the catalog and executes lines from in until EOF, quit, or ctx
// cancellation.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	s.printf("Xush kelibsiz, %s! Yordam uchun: help\n", s.sf.Greeting())
	s.sf.Init(ctx)
	if s.sf.Fallback() {
		s.printf("Server bilan aloqa yo'q, namunaviy kitoblar ko'rsatilmoqda\n")
	}

	scanner := bufio.NewScanner(in)
	for {
		s.printf("booknest> ")
		if !scanner.Scan() {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if quit := s.Exec(ctx, scanner.Text()); quit {
			return nil
		}
	}
	return errors.Wrap(scanner.Err(), "read input")
}

// Exec runs one command line and reports whether the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) (quit bool) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "":
	case "quit", "exit", "q":
		return true
	case "help", "h", "?":
		s.printf("%s", help)
	case "list", "ls":
		s.sf.Refresh()
	case "category", "c":
		if arg == "" {
			arg = book.CategoryAll
		}
		s.sf.SelectCategory(arg)
	case "search", "s":
		if _, ok := s.sf.SubmitSearch(arg); !ok {
			s.printf("Qidiruv matnini kiriting\n")
		}
	case "cart":
		if id, ok := s.id(arg); ok {
			s.sf.ToggleCart(id)
		}
	case "fav":
		if id, ok := s.id(arg); ok {
			s.sf.ToggleFavorite(id)
		}
	case "qty":
		idArg, nArg, _ := strings.Cut(arg, " ")
		id, ok := s.id(idArg)
		if !ok {
			return false
		}
		n, err := strconv.Atoi(strings.TrimSpace(nArg))
		if err != nil {
			s.printf("Miqdor noto'g'ri: %q\n", nArg)
			return false
		}
		s.sf.SetCartQuantity(id, n)
	case "top":
		n := s.topN
		if arg != "" {
			v, err := strconv.Atoi(arg)
			if err != nil || v <= 0 {
				s.printf("Son noto'g'ri: %q\n", arg)
				return false
			}
			n = v
		}
		s.sf.RequestTopBestsellers(ctx, n)
	case "more":
		s.loadMore(ctx)
	default:
		s.printf("Noma'lum buyruq: %q. Yordam uchun: help\n", cmd)
	}
	return false
}

func (s *Shell) loadMore(ctx context.Context) {
	n, err := s.sf.RequestLoadMore(ctx)
	switch {
	case errors.Is(err, catalog.ErrNoMorePages):
		s.printf("Boshqa kitoblar yo'q\n")
	case err != nil:
		s.printf("Qo'shimcha kitoblarni yuklab bo'lmadi: %v\n", err)
	default:
		s.printf("%d ta kitob qo'shildi\n", n)
	}
}

func (s *Shell) id(arg string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		s.printf("Kitob raqami noto'g'ri: %q\n", arg)
		return 0, false
	}
	return id, true
}

func (s *Shell) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}
