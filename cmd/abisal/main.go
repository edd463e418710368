package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"abisal/client/internal/api"
	"abisal/client/internal/config"
	"abisal/client/internal/guard"
	"abisal/client/internal/log"
	"abisal/client/internal/mutate"
	"abisal/client/internal/service"
	"abisal/client/internal/session"
	"abisal/client/internal/token"
)

const usage = `usage: abisal <command> [args]

commands:
  login <email> <password>              authenticate and store the session
  register <username> <email> <password>
  logout                                clear the stored session
  whoami                                show the current identity
  articles [category]                   list articles
  article <id>                          show one article
  like <id> | unlike <id>               toggle a like
  delete <id>                           delete an article (admin)
`

type app struct {
	log      zerolog.Logger
	session  *session.Store
	auth     *service.AuthService
	articles *service.ArticlesService
	users    *service.UsersService
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := log.New(cfg.Environment, cfg.LogLevel)
	ctx := context.Background()

	persist, err := newPersistence(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("session storage unavailable")
	}

	sess := session.New(persist, logger)
	if err := sess.Init(ctx); err != nil {
		logger.Fatal().Err(err).Msg("session init failed")
	}

	client := api.New(cfg.API, cfg.RateLimit, sess, logger)

	a := &app{
		log:      logger,
		session:  sess,
		auth:     service.NewAuthService(client, sess, logger),
		articles: service.NewArticlesService(client, logger),
		users:    service.NewUsersService(client),
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		// Pipeline errors arrive ready to display.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newPersistence(ctx context.Context, cfg *config.AppConfig) (session.Persistence, error) {
	switch cfg.Session.Backend {
	case "redis":
		client, err := session.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return session.NewRedisStore(client, cfg.Session.KeyPrefix), nil
	case "", "file":
		return session.NewFileStore(cfg.Session.FilePath), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		if len(args) != 2 {
			return errors.New("usage: abisal login <email> <password>")
		}
		user, err := a.auth.Login(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("logged in as %s (%s)\n", user.Email, user.Role)
		return nil

	case "register":
		if len(args) != 3 {
			return errors.New("usage: abisal register <username> <email> <password>")
		}
		user, err := a.auth.Register(ctx, args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Printf("registered as %s (%s)\n", user.Email, user.Role)
		return nil

	case "logout":
		if err := a.auth.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("logged out")
		return nil

	case "whoami":
		if user, ok := a.session.CurrentUser(); ok && a.session.IsAuthenticated() {
			fmt.Printf("%s (%s)\n", user.Email, user.Role)
		} else {
			fmt.Println("not logged in")
		}
		return nil

	case "articles":
		category := ""
		if len(args) > 0 {
			category = args[0]
		}
		result, err := a.articles.List(ctx, category)
		if err != nil {
			return err
		}
		for _, article := range result.Articles {
			fmt.Printf("%s  %-40s  %d likes  by %s\n", article.ID, article.Title, article.Likes, a.authorName(ctx, article))
		}
		return nil

	case "article":
		if len(args) != 1 {
			return errors.New("usage: abisal article <id>")
		}
		article, err := a.articles.Get(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s\n%s\n\n%s\n%d likes\n", article.Title, article.Description, article.Content, article.Likes)
		return nil

	case "like", "unlike":
		if len(args) != 1 {
			return fmt.Errorf("usage: abisal %s <id>", command)
		}
		return a.toggleLike(ctx, command == "like", args[0])

	case "delete":
		if len(args) != 1 {
			return errors.New("usage: abisal delete <id>")
		}
		switch guard.Evaluate(a.session, token.RoleAdmin) {
		case guard.RedirectLogin:
			return errors.New("please log in first")
		case guard.RedirectForbidden:
			return errors.New("only admins can delete articles")
		}
		if err := a.articles.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("deleted")
		return nil

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) toggleLike(ctx context.Context, like bool, id string) error {
	if guard.Evaluate(a.session) != guard.Render {
		return errors.New("please log in first")
	}

	// Seed local like state so the optimistic delta starts from the
	// authoritative count.
	if _, err := a.articles.Get(ctx, id); err != nil {
		return err
	}

	var likes service.Likes
	var err error
	if like {
		likes, err = a.articles.Like(ctx, id)
	} else {
		likes, err = a.articles.Unlike(ctx, id)
	}
	if errors.Is(err, mutate.ErrPending) {
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("%d likes\n", likes.Count)
	return nil
}

func (a *app) authorName(ctx context.Context, article service.Article) string {
	if article.Username != "" {
		return article.Username
	}
	if article.CreatorID == "" {
		return "unknown"
	}
	name, err := a.users.UsernameByID(ctx, article.CreatorID)
	if err != nil || name == "" {
		return "unknown"
	}
	return name
}
