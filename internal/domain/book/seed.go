package book

import "github.com/shopspring/decimal"

// seed is the built-in collection shown when the remote catalog is unavailable.
var seed = []Book{
	{
		ID:            1,
		Title:         "O'tgan kunlar",
		Author:        "Abdulla Qodiriy",
		Category:      "klassik",
		Price:         decimal.NewFromInt(45000),
		OriginalPrice: decimal.NewFromInt(60000),
		Rating:        4.8,
		RatingCount:   256,
		Icon:          "📚",
		Description:   "O'zbek adabiyotining bepul klassikasi",
	},
	{
		ID:            2,
		Title:         "Alpomish",
		Author:        "Xalq og'zaki ijodi",
		Category:      "dostoner",
		Price:         decimal.NewFromInt(38000),
		OriginalPrice: decimal.NewFromInt(50000),
		Rating:        4.9,
		RatingCount:   189,
		Icon:          "⚔️",
		Description:   "O'zbek xalqining buyuk dostoni",
	},
	{
		ID:            3,
		Title:         "Xamsa",
		Author:        "Alisher Navoiy",
		Category:      "sherlar",
		Price:         decimal.NewFromInt(75000),
		OriginalPrice: decimal.NewFromInt(95000),
		Rating:        4.9,
		RatingCount:   342,
		Icon:          "🎭",
		Description:   "Buyuk shoirning ulug' asari",
	},
	{
		ID:            4,
		Title:         "Yer yuzidagi eng chiroyli yer",
		Author:        "Murod Muhammad Do'st",
		Category:      "zamonaviy",
		Price:         decimal.NewFromInt(42000),
		OriginalPrice: decimal.NewFromInt(55000),
		Rating:        4.7,
		RatingCount:   156,
		Icon:          "🌍",
		Description:   "Zamonaviy o'zbek adabiyotidan ajoyib asar",
	},
	{
		ID:            5,
		Title:         "Baxtli kunlar",
		Author:        "Said Ahmad",
		Category:      "yoshlar",
		Price:         decimal.NewFromInt(35000),
		OriginalPrice: decimal.NewFromInt(45000),
		Rating:        4.6,
		RatingCount:   89,
		Icon:          "🌟",
		Description:   "Yoshlar uchun mo'ljallangan qiziqarli roman",
	},
	{
		ID:            6,
		Title:         "Dizayn asoslari",
		Author:        "Jamoliddin Karimov",
		Category:      "texnik",
		Price:         decimal.NewFromInt(68000),
		OriginalPrice: decimal.NewFromInt(85000),
		Rating:        4.5,
		RatingCount:   234,
		Icon:          "💻",
		Description:   "Dizayn va texnologiya haqida",
	},
}

// Seed returns a fresh copy of the built-in seed collection.
func Seed() []Book {
	return Clone(seed)
}
