package catalog

import "github.com/shopspring/decimal"

func rub(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func oldRub(v int64) *decimal.Decimal {
	d := rub(v)
	return &d
}

var seedCategories = []Category{
	{Slug: "chairs", Name: "Стулья"},
	{Slug: "wooden-chairs", Name: "Деревянные стулья", Parent: "chairs"},
	{Slug: "metal-chairs", Name: "Стулья на металлокаркасе", Parent: "chairs"},
	{Slug: "tables", Name: "Столы"},
	{Slug: "dining-tables", Name: "Обеденные столы", Parent: "tables"},
	{Slug: "bar-tables", Name: "Барные столы", Parent: "tables"},
	{Slug: "sofas", Name: "Диваны"},
	{Slug: "armchairs", Name: "Кресла"},
	{Slug: "bar-stools", Name: "Барные стулья"},
}

var seedProducts = []Product{
	{
		ID: "chair-vienna", Name: "Стул Вена", Category: "chairs", Subcategory: "wooden-chairs",
		Price: rub(8900), Availability: AvailabilityInStock, DimensionsText: "45×52×86 см", Stock: 120,
		Materials: []string{"бук"}, Colors: []string{"орех", "венге"}, Tags: []string{"ресторан", "кафе"},
		IsHit: true, Image: "/images/products/chair-vienna.jpg",
	},
	{
		ID: "chair-loft", Name: "Стул Лофт", Category: "chairs", Subcategory: "metal-chairs",
		Price: rub(6500), OldPrice: oldRub(7900), Availability: AvailabilityInStock, DimensionsText: "44×50×82 см", Stock: 64,
		Materials: []string{"металл", "фанера"}, Colors: []string{"черный"}, Tags: []string{"кафе"},
		IsSale: true, Image: "/images/products/chair-loft.jpg",
	},
	{
		ID: "chair-milan", Name: "Стул Милан мягкий", Category: "chairs", Subcategory: "wooden-chairs",
		Price: rub(12400), Availability: Availability7Days, DimensionsText: "48×55×92 см", Stock: 0,
		Materials: []string{"бук", "велюр"}, Colors: []string{"серый", "изумрудный"}, Tags: []string{"ресторан", "отель"},
		IsNew: true, Image: "/images/products/chair-milan.jpg",
	},
	{
		ID: "table-oslo", Name: "Стол Осло", Category: "tables", Subcategory: "dining-tables",
		Price: rub(99900), Availability: Availability10Days, DimensionsText: "180×80×90 см", Stock: 4,
		Materials: []string{"дуб"}, Colors: []string{"натуральный"}, Tags: []string{"ресторан"},
		IsHit: true, Image: "/images/products/table-oslo.jpg",
	},
	{
		ID: "table-round", Name: "Стол Круглый Ø80", Category: "tables", Subcategory: "dining-tables",
		Price: rub(89900), Availability: AvailabilityInStock, DimensionsText: "Ø80×75 см", Stock: 12,
		Materials: []string{"ясень"}, Colors: []string{"белый"}, Tags: []string{"кафе"},
		Image: "/images/products/table-round.jpg",
	},
	{
		ID: "table-bar-square", Name: "Барный стол Квадрат", Category: "tables", Subcategory: "bar-tables",
		Price: rub(109900), Availability: Availability7Days, DimensionsText: "80×80 см", Stock: 2,
		Materials: []string{"металл", "дуб"}, Colors: []string{"черный"}, Tags: []string{"бар"},
		IsNew: true, Image: "/images/products/table-bar-square.jpg",
	},
	{
		ID: "sofa-lounge", Name: "Диван Лаунж трехместный", Category: "sofas",
		Price: rub(154000), OldPrice: oldRub(169000), Availability: Availability10Days, DimensionsText: "210×90×78 см", Stock: 1,
		Materials: []string{"велюр", "массив сосны"}, Colors: []string{"серый"}, Tags: []string{"лобби", "отель"},
		IsSale: true, Image: "/images/products/sofa-lounge.jpg",
	},
	{
		ID: "sofa-booth", Name: "Диван-бокс для ресторана", Category: "sofas",
		Price: rub(118500), Availability: Availability10Days, DimensionsText: "по индивидуальным размерам", Stock: 0,
		Materials: []string{"экокожа"}, Colors: []string{"коричневый"}, Tags: []string{"ресторан"},
		IsHit: true, Image: "/images/products/sofa-booth.jpg",
	},
	{
		ID: "armchair-shell", Name: "Кресло Ракушка", Category: "armchairs",
		Price: rub(32900), Availability: AvailabilityInStock, DimensionsText: "72x68x80 см", Stock: 9,
		Materials: []string{"велюр", "металл"}, Colors: []string{"терракотовый", "изумрудный"}, Tags: []string{"лобби"},
		IsNew: true, IsHit: true, Image: "/images/products/armchair-shell.jpg",
	},
	{
		ID: "stool-bar-high", Name: "Барный стул Хай", Category: "bar-stools",
		Price: rub(14900), Availability: AvailabilityInStock, DimensionsText: "Ø40×105 см", Stock: 40,
		Materials: []string{"металл", "экокожа"}, Colors: []string{"черный", "коричневый"}, Tags: []string{"бар"},
		Image: "/images/products/stool-bar-high.jpg",
	},
}

// Seed returns the built-in catalog the storefront ships with.
func Seed() *Dataset {
	ds, err := NewDataset(seedCategories, seedProducts)
	if err != nil {
		panic(err)
	}
	return ds
}
