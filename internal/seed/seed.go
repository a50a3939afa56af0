// Package seed loads development users and sample books.
package seed

import (
	"context"
	"fmt"

	"librarian/internal/models"
	"librarian/internal/repositories"

	"github.com/rs/zerolog"
)

// Account is a seed user with its plaintext password.
type Account struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// Accounts are the development users. Existing emails are left untouched.
var Accounts = []Account{
	{Email: "taro.yamada@sigo-ri.co.jp", Password: "taro123", Name: "山田 太郎", Role: models.RoleAdmin},
	{Email: "hanako.suzuki@sigo-ri.co.jp", Password: "hanako123", Name: "鈴木 花子", Role: models.RoleUser},
	{Email: "ichiro.sato@sigo-ri.co.jp", Password: "ichiro123", Name: "佐藤 一郎", Role: models.RoleUser},
	{Email: "yuko.tanaka@sigo-ri.co.jp", Password: "yuko123", Name: "田中 優子", Role: models.RoleUser},
	{Email: "kenji.kobayashi@sigo-ri.co.jp", Password: "kenji123", Name: "小林 健二", Role: models.RoleUser},
}

type sampleBook struct {
	title, author, isbn, location, memo, purchasedAt, owner string
}

var sampleBooks = []sampleBook{
	{"プログラミング言語Go", "Alan A. A. Donovan", "978-4-621-30025-1", "本棚A-1", "", "2016-06-20", "taro.yamada@sigo-ri.co.jp"},
	{"Go言語による並行処理", "Katherine Cox-Buday", "978-4-87311-846-8", "本棚A-2", "輪読会で使用", "2018-10-26", "hanako.suzuki@sigo-ri.co.jp"},
	{"リーダブルコード", "Dustin Boswell", "978-4-87311-565-8", "本棚B-1", "新人向け", "2012-06-23", "ichiro.sato@sigo-ri.co.jp"},
	{"達人プログラマー 第2版", "David Thomas", "978-4-274-22629-8", "本棚B-2", "", "2020-11-20", "yuko.tanaka@sigo-ri.co.jp"},
	{"データ指向アプリケーションデザイン", "Martin Kleppmann", "978-4-87311-870-3", "", "貸出中\n返却予定: 月末", "2019-07-18", "kenji.kobayashi@sigo-ri.co.jp"},
	{"吾輩は猫である", "夏目漱石", "", "書庫", "", "", "taro.yamada@sigo-ri.co.jp"},
	{"実用 Go言語", "渋川よしき", "978-4-87311-938-0", "本棚A-1", "", "2022-04-25", "hanako.suzuki@sigo-ri.co.jp"},
	{"Clean Architecture", "Robert C. Martin", "978-4-04-886065-6", "本棚B-3", "", "2018-07-27", "ichiro.sato@sigo-ri.co.jp"},
	{"エリック・エヴァンスのドメイン駆動設計", "Eric Evans", "978-4-7981-2196-3", "本棚C-1", "付箋多め", "2011-04-09", "yuko.tanaka@sigo-ri.co.jp"},
	{"テスト駆動開発", "Kent Beck", "978-4-274-21788-3", "本棚C-2", "", "2017-10-14", "kenji.kobayashi@sigo-ri.co.jp"},
	{"リファクタリング 第2版", "Martin Fowler", "978-4-274-22454-6", "本棚B-3", "", "2019-12-01", "taro.yamada@sigo-ri.co.jp"},
	{"SQLアンチパターン", "Bill Karwin", "978-4-87311-589-4", "本棚D-1", "", "2013-01-26", "hanako.suzuki@sigo-ri.co.jp"},
	{"Webを支える技術", "山本陽平", "978-4-7741-4204-3", "本棚D-2", "", "2010-04-08", "ichiro.sato@sigo-ri.co.jp"},
	{"マスタリングTCP/IP 入門編 第6版", "井上直也", "978-4-274-22447-8", "本棚D-2", "", "2019-11-22", "yuko.tanaka@sigo-ri.co.jp"},
	{"詳解UNIXプログラミング 第3版", "W. Richard Stevens", "978-4-7981-3488-8", "本棚E-1", "重いので持ち出し注意", "2014-05-20", "kenji.kobayashi@sigo-ri.co.jp"},
	{"入門 監視", "Mike Julian", "978-4-87311-864-2", "本棚E-2", "", "2019-01-17", "taro.yamada@sigo-ri.co.jp"},
	{"システム運用アンチパターン", "Jeffery D. Smith", "978-4-87311-989-2", "本棚E-2", "", "2022-06-15", "hanako.suzuki@sigo-ri.co.jp"},
	{"Kubernetes完全ガイド 第2版", "青山真也", "978-4-295-01230-2", "本棚E-3", "", "2020-12-25", "ichiro.sato@sigo-ri.co.jp"},
	{"Docker/Kubernetes実践コンテナ開発入門", "山田明憲", "978-4-297-10033-9", "本棚E-3", "", "2018-09-04", "yuko.tanaka@sigo-ri.co.jp"},
	{"ソフトウェアアーキテクチャの基礎", "Mark Richards", "978-4-87311-982-3", "本棚C-3", "", "2022-03-07", "kenji.kobayashi@sigo-ri.co.jp"},
	{"Team Topologies", "Matthew Skelton", "978-4-8207-2963-9", "", "", "2021-12-22", "taro.yamada@sigo-ri.co.jp"},
	{"エンジニアのためのマネジメントキャリアパス", "Camille Fournier", "978-4-87311-846-1", "本棚F-1", "", "2018-04-25", "hanako.suzuki@sigo-ri.co.jp"},
	{"LeanとDevOpsの科学", "Nicole Forsgren", "978-4-295-00543-4", "本棚F-1", "", "2018-11-16", "ichiro.sato@sigo-ri.co.jp"},
	{"プログラマの数学 第2版", "結城浩", "978-4-7973-9545-7", "本棚F-2", "", "2018-01-13", "yuko.tanaka@sigo-ri.co.jp"},
	{"アルゴリズムイントロダクション 第3版 第1巻", "Thomas H. Cormen", "978-4-7649-0408-8", "書庫", "全3巻の1冊目", "2012-03-05", "kenji.kobayashi@sigo-ri.co.jp"},
	{"ゼロから作るDeep Learning", "斎藤康毅", "978-4-87311-758-4", "本棚G-1", "", "2016-09-24", "taro.yamada@sigo-ri.co.jp"},
	{"Pythonではじめる機械学習", "Andreas C. Muller", "978-4-87311-798-0", "本棚G-1", "", "2017-05-25", "hanako.suzuki@sigo-ri.co.jp"},
	{"失敗から学ぶRDBの正しい歩き方", "曽根壮大", "978-4-297-10408-5", "本棚D-1", "", "2019-03-06", "ichiro.sato@sigo-ri.co.jp"},
	{"坊っちゃん", "夏目漱石", "", "書庫", "", "", "yuko.tanaka@sigo-ri.co.jp"},
	{"人月の神話", "Frederick P. Brooks Jr.", "978-4-621-06608-9", "本棚F-2", "", "2014-04-25", "kenji.kobayashi@sigo-ri.co.jp"},
}

// PasswordHasher hashes seed passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Seeder writes the development data through the repositories.
type Seeder struct {
	users  repositories.UserRepository
	books  repositories.BookRepository
	hasher PasswordHasher
	log    zerolog.Logger
}

// NewSeeder creates a new Seeder.
func NewSeeder(users repositories.UserRepository, books repositories.BookRepository, hasher PasswordHasher, log zerolog.Logger) *Seeder {
	return &Seeder{users: users, books: books, hasher: hasher, log: log.With().Str("component", "seed").Logger()}
}

// Users inserts every account whose email is not yet taken and returns how many were created.
func (s *Seeder) Users(ctx context.Context) (int, error) {
	created := 0
	for _, a := range Accounts {
		hash, err := s.hasher.Hash(a.Password)
		if err != nil {
			return created, fmt.Errorf("failed to hash password for %s: %w", a.Email, err)
		}
		ok, err := s.users.CreateIfAbsent(ctx, &models.User{Email: a.Email, Password: hash, Name: a.Name, Role: a.Role})
		if err != nil {
			return created, err
		}
		if ok {
			created++
			s.log.Info().Str("email", a.Email).Str("role", a.Role).Msg("seeded user")
		}
	}
	return created, nil
}

// Books inserts the sample books when the store has none. Users must be seeded first.
func (s *Seeder) Books(ctx context.Context) (int, error) {
	existing, err := s.books.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		s.log.Info().Int("books", len(existing)).Msg("books already present, skipping sample books")
		return 0, nil
	}

	for i, b := range sampleBooks {
		book := &models.Book{
			Title:        b.title,
			Author:       b.author,
			ISBN:         optional(b.isbn),
			Location:     optional(b.location),
			Memo:         optional(b.memo),
			PurchasedAt:  models.DefaultPurchasedAt,
			RegisteredBy: b.owner,
		}
		if b.purchasedAt != "" {
			book.PurchasedAt = models.MustParseDate(b.purchasedAt)
		}
		if err := s.books.Create(ctx, book); err != nil {
			return i, err
		}
	}
	s.log.Info().Int("books", len(sampleBooks)).Msg("seeded sample books")
	return len(sampleBooks), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
