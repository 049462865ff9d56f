package backend

import (
	"context"
	"sort"
	"strings"

	"github.com/atelier-works/concierge/internal/agent"
	"github.com/atelier-works/concierge/internal/domain"
)

// Knowledge is the mock product catalog and policy knowledge base. It is
// read-only after construction and safe for concurrent use.
type Knowledge struct {
	products []domain.Product
	policies []domain.PolicyDocument
}

// NewKnowledge builds a knowledge backend seeded with the catalog and
// policy documents.
func NewKnowledge() *Knowledge {
	return &Knowledge{
		products: seedProducts(),
		policies: seedPolicies(),
	}
}

func seedProducts() []domain.Product {
	return []domain.Product{
		{
			ProductID:   "PROD-001",
			Name:        "Merino Wool Performance Jacket",
			Description: "Italian merino wool jacket with tailored fit and breathable fabric. Features premium YKK zippers and water-resistant finish. Perfect for urban professionals and outdoor enthusiasts.",
			Price:       895.00,
			Category:    "Outerwear",
			InStock:     true,
			Features: []string{
				"100% Italian Merino Wool",
				"Water-resistant DWR coating",
				"YKK premium zippers",
				"Tailored athletic fit",
				"Interior security pocket",
			},
		},
		{
			ProductID:   "PROD-002",
			Name:        "Technical Cashmere Sweater",
			Description: "Luxury cashmere blend sweater with enhanced durability. Temperature-regulating fabric maintains comfort in all seasons. Modern slim fit with reinforced elbows.",
			Price:       485.00,
			Category:    "Knitwear",
			InStock:     true,
			Features: []string{
				"80% Cashmere, 20% Technical Fiber",
				"Temperature regulating",
				"Reinforced high-wear areas",
				"Pilling resistant",
				"Modern slim fit",
			},
		},
		{
			ProductID:   "PROD-003",
			Name:        "Heritage Leather Weekender Bag",
			Description: "Full-grain Italian leather weekender with brass hardware. Hand-stitched construction and canvas lining. Develops unique patina over time. Limited edition colorway.",
			Price:       1250.00,
			Category:    "Accessories",
			InStock:     false,
			Features: []string{
				"Full-grain Italian leather",
				"Brass hardware",
				"Hand-stitched seams",
				"Canvas interior lining",
				"Develops natural patina",
			},
		},
		{
			ProductID:   "PROD-004",
			Name:        "Performance Stretch Trousers",
			Description: "Japanese technical fabric trousers with four-way stretch and wrinkle resistance. Water-repellent finish with hidden zip pockets. Perfect for travel and active lifestyle.",
			Price:       395.00,
			Category:    "Bottoms",
			InStock:     true,
			Features: []string{
				"Japanese technical fabric",
				"Four-way stretch",
				"Wrinkle resistant",
				"Water repellent",
				"Hidden security pockets",
			},
		},
		{
			ProductID:   "PROD-005",
			Name:        "Lightweight Down Vest",
			Description: "Premium 800-fill goose down vest with ultra-lightweight construction. Packable design fits into its own pocket. Ideal for layering or travel.",
			Price:       325.00,
			Category:    "Outerwear",
			InStock:     true,
			Features: []string{
				"800-fill goose down",
				"Ultra-lightweight ripstop fabric",
				"Packable into pocket",
				"DWR water treatment",
				"Slim athletic fit",
			},
		},
		{
			ProductID:   "PROD-006",
			Name:        "Swiss Automatic Watch",
			Description: "Swiss-made automatic timepiece with sapphire crystal and exhibition caseback. 42mm stainless steel case with Italian leather strap. 100m water resistance.",
			Price:       2850.00,
			Category:    "Accessories",
			InStock:     true,
			Features: []string{
				"Swiss automatic movement",
				"Sapphire crystal",
				"Exhibition caseback",
				"Italian leather strap",
				"100m water resistance",
			},
		},
		{
			ProductID:   "PROD-007",
			Name:        "Merino Wool Base Layer Set",
			Description: "Premium merino wool base layer system. Moisture-wicking and odor-resistant. Flatlock seams prevent chafing. Essential for all-season performance.",
			Price:       245.00,
			Category:    "Base Layers",
			InStock:     true,
			Features: []string{
				"New Zealand Merino Wool",
				"Moisture-wicking",
				"Naturally odor-resistant",
				"Flatlock seams",
				"Temperature regulating",
			},
		},
		{
			ProductID:   "PROD-008",
			Name:        "Premium Leather Chelsea Boots",
			Description: "Handcrafted Italian leather Chelsea boots with Goodyear welt construction. Blake-stitched leather sole and cushioned insole. Modern silhouette with elastic side panels.",
			Price:       725.00,
			Category:    "Footwear",
			InStock:     true,
			Features: []string{
				"Italian calfskin leather",
				"Goodyear welt construction",
				"Blake-stitched leather sole",
				"Cushioned leather insole",
				"Elastic side panels",
			},
		},
	}
}

func seedPolicies() []domain.PolicyDocument {
	return []domain.PolicyDocument{
		{
			DocID: "POL-001",
			Title: "Shipping and Delivery",
			Content: "Complimentary white-glove delivery service on all orders. Standard delivery takes 3-5 business days " +
				"with signature required. Express delivery (1-2 business days) available for time-sensitive orders. " +
				"International shipping available to over 50 countries with customs handling included. All items are " +
				"meticulously packaged in luxury presentation boxes. Track your order with real-time updates via SMS and email.",
			Category: "shipping",
			Keywords: []string{"shipping", "delivery", "white-glove", "express", "international", "luxury packaging", "tracking"},
		},
		{
			DocID: "POL-002",
			Title: "Returns and Exchanges",
			Content: "We offer a 60-day return policy for unworn items with original tags attached. Complimentary return " +
				"shipping provided for all returns. Items can be exchanged for different sizes or colors at no charge. " +
				"Our concierge team will arrange courier pickup at your convenience. Full refund processed within 5 business " +
				"days of receiving your return. Personalized or custom-tailored items are final sale.",
			Category: "returns",
			Keywords: []string{"return", "refund", "exchange", "60 days", "complimentary", "concierge", "courier pickup"},
		},
		{
			DocID: "POL-003",
			Title: "Quality Guarantee and Care",
			Content: "All products are backed by our lifetime quality guarantee covering craftsmanship defects. " +
				"Complimentary alterations and repairs available at our atelier for the lifetime of the garment. " +
				"Annual professional cleaning service included for leather goods. We stand behind the exceptional " +
				"quality of our materials and construction. Our care specialists provide personalized guidance on " +
				"maintaining your investment pieces.",
			Category: "warranty",
			Keywords: []string{"quality", "guarantee", "lifetime", "repair", "alterations", "care", "atelier", "craftsmanship"},
		},
		{
			DocID: "POL-004",
			Title: "Personal Styling Services",
			Content: "Complimentary personal styling consultation for all clients. Our expert stylists provide wardrobe " +
				"assessments, seasonal updates, and complete outfit curation. Book in-person sessions at our showrooms or " +
				"virtual consultations from anywhere. Receive personalized lookbooks tailored to your lifestyle and preferences. " +
				"Priority access to new collections and exclusive pieces. Styling services include travel wardrobe planning " +
				"and special event dressing.",
			Category: "services",
			Keywords: []string{"styling", "personal stylist", "consultation", "wardrobe", "lookbook", "exclusive", "appointment"},
		},
		{
			DocID: "POL-005",
			Title: "Fitting and Tailoring Services",
			Content: "Expert fitting appointments available at all our locations. Our master tailors provide precise " +
				"measurements and customization recommendations. Complimentary basic alterations on all full-price items. " +
				"Custom tailoring services for perfect fit guaranteed. Express alteration service available for time-sensitive " +
				"needs. Book appointments online or call our concierge team. Average turnaround for alterations is 7-10 days.",
			Category: "services",
			Keywords: []string{"fitting", "tailoring", "alterations", "measurements", "custom", "appointment", "perfect fit"},
		},
		{
			DocID: "POL-006",
			Title: "VIP Concierge Program",
			Content: "Join our VIP program for exclusive benefits and personalized service. Dedicated concierge available " +
				"24/7 for styling advice, order assistance, and special requests. Priority access to limited editions and " +
				"seasonal previews. Invitations to private shopping events and trunk shows. Complimentary gift wrapping and " +
				"monogramming services. Early access to sale events. Annual gift with purchase based on membership tier.",
			Category: "membership",
			Keywords: []string{"VIP", "concierge", "exclusive", "priority", "benefits", "membership", "private events"},
		},
		{
			DocID: "POL-007",
			Title: "Privacy and Security",
			Content: "We protect your personal information with bank-level encryption. Your data is never shared with " +
				"third parties for marketing purposes. Secure payment processing through certified PCI-DSS compliant systems. " +
				"All personal styling preferences and measurements are kept strictly confidential. You maintain full control " +
				"over your data with options to view, update, or delete at any time. We comply with GDPR, CCPA, and international " +
				"privacy regulations.",
			Category: "privacy",
			Keywords: []string{"privacy", "security", "data protection", "encryption", "GDPR", "CCPA", "confidential"},
		},
	}
}

// SearchProducts scores the catalog against the query and returns matches
// sorted by relevance, best first. Ties keep catalog order.
func (k *Knowledge) SearchProducts(query string) []domain.Product {
	queryLower := strings.ToLower(query)
	queryWords := strings.Fields(queryLower)

	type scored struct {
		product domain.Product
		score   float64
	}
	var results []scored

	for _, product := range k.products {
		score := 0.0
		nameLower := strings.ToLower(product.Name)
		descLower := strings.ToLower(product.Description)

		if strings.Contains(nameLower, queryLower) {
			score += 10.0
		}
		if strings.Contains(descLower, queryLower) {
			score += 5.0
		}
		if strings.Contains(strings.ToLower(product.Category), queryLower) {
			score += 3.0
		}
		for _, feature := range product.Features {
			if strings.Contains(strings.ToLower(feature), queryLower) {
				score += 2.0
			}
		}
		for _, word := range queryWords {
			if len(word) <= 2 {
				continue
			}
			if strings.Contains(nameLower, word) {
				score += 1.0
			}
			if strings.Contains(descLower, word) {
				score += 0.5
			}
		}

		if score > 0 {
			results = append(results, scored{product: product, score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	out := make([]domain.Product, 0, len(results))
	for _, r := range results {
		out = append(out, r.product)
	}
	return out
}

// GetProduct returns a product by its exact id, or nil.
func (k *Knowledge) GetProduct(productID string) *domain.Product {
	for i := range k.products {
		if k.products[i].ProductID == productID {
			cp := k.products[i]
			return &cp
		}
	}
	return nil
}

// GetProducts returns the full catalog.
func (k *Knowledge) GetProducts() []domain.Product {
	return append([]domain.Product(nil), k.products...)
}

// GetProductsByCategory returns all products in a category, case-insensitive.
func (k *Knowledge) GetProductsByCategory(category string) []domain.Product {
	categoryLower := strings.ToLower(category)
	out := []domain.Product{}
	for _, p := range k.products {
		if strings.ToLower(p.Category) == categoryLower {
			out = append(out, p)
		}
	}
	return out
}

// GetAvailableProducts returns all in-stock products.
func (k *Knowledge) GetAvailableProducts() []domain.Product {
	out := []domain.Product{}
	for _, p := range k.products {
		if p.InStock {
			out = append(out, p)
		}
	}
	return out
}

// SearchPolicies scores the policy documents against the query and returns
// matches sorted by relevance, best first.
func (k *Knowledge) SearchPolicies(query string) []domain.PolicyDocument {
	queryLower := strings.ToLower(query)
	queryWords := strings.Fields(queryLower)

	type scored struct {
		policy domain.PolicyDocument
		score  float64
	}
	var results []scored

	for _, policy := range k.policies {
		score := 0.0
		titleLower := strings.ToLower(policy.Title)
		contentLower := strings.ToLower(policy.Content)

		if strings.Contains(titleLower, queryLower) {
			score += 10.0
		}
		if strings.Contains(contentLower, queryLower) {
			score += 5.0
		}
		for _, keyword := range policy.Keywords {
			keywordLower := strings.ToLower(keyword)
			if strings.Contains(keywordLower, queryLower) || strings.Contains(queryLower, keywordLower) {
				score += 3.0
			}
		}
		if strings.Contains(strings.ToLower(policy.Category), queryLower) {
			score += 2.0
		}
		for _, word := range queryWords {
			if len(word) <= 2 {
				continue
			}
			if strings.Contains(titleLower, word) {
				score += 1.0
			}
			if strings.Contains(contentLower, word) {
				score += 0.5
			}
			for _, keyword := range policy.Keywords {
				if strings.Contains(strings.ToLower(keyword), word) {
					score += 1.0
				}
			}
		}

		if score > 0 {
			results = append(results, scored{policy: policy, score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	out := make([]domain.PolicyDocument, 0, len(results))
	for _, r := range results {
		out = append(out, r.policy)
	}
	return out
}

// GetPolicy returns a policy document by id, or nil.
func (k *Knowledge) GetPolicy(docID string) *domain.PolicyDocument {
	for i := range k.policies {
		if k.policies[i].DocID == docID {
			cp := k.policies[i]
			return &cp
		}
	}
	return nil
}

// GetPoliciesByCategory returns all policy documents in a category,
// case-insensitive.
func (k *Knowledge) GetPoliciesByCategory(category string) []domain.PolicyDocument {
	categoryLower := strings.ToLower(category)
	out := []domain.PolicyDocument{}
	for _, p := range k.policies {
		if strings.ToLower(p.Category) == categoryLower {
			out = append(out, p)
		}
	}
	return out
}

const searchProductsDoc = `Search products by name, description, category, or features. Use this when clients mention product names or descriptions (e.g., "merino jacket", "leather bag", "winter coats"). This searches across all product fields and returns full product details including product_id. ALWAYS use this function first when clients describe what they're looking for, rather than trying to construct or guess a product_id.

Args:
    query: Search query string (product name, description, category, or feature keywords)

Returns:
    List of matching products with complete details (including product_id), sorted by relevance`

const getProductDoc = `Get a specific product by its exact product_id. ONLY use this when you already have the exact product_id in format PROD-XXX (e.g., "PROD-001", "PROD-002"). DO NOT use slugified names, product names, or any other format as the product_id. If you need to find a product by name or description, use search_products first to get the correct product_id.

Args:
    product_id: Exact product identifier in format PROD-XXX (e.g., "PROD-001")

Returns:
    Product with full details if found, null otherwise`

const getProductsDoc = `Get all products in the catalog.

Returns:
    List of all products`

const getProductsByCategoryDoc = `Get all products in a category.

Args:
    category: Product category

Returns:
    List of products in the category`

const getAvailableProductsDoc = `Get all in-stock products.

Returns:
    List of products that are in stock`

const searchPoliciesDoc = `Search company policies and information documents. Use this to find information about shipping, returns, warranty, privacy, terms of service, fitting services, styling sessions, VIP programs, and other company policies. Searches across titles, content, and keywords.

Args:
    query: Search query string (e.g., "shipping", "returns", "warranty", "privacy", "fitting appointment")

Returns:
    List of matching policy documents with full details, sorted by relevance`

const getPolicyDoc = `Get a specific policy document by ID.

Args:
    doc_id: Document identifier

Returns:
    Policy document if found, null otherwise`

const getPoliciesByCategoryDoc = `Get all policy documents in a category.

Args:
    category: Policy category (shipping, returns, warranty, etc.)

Returns:
    List of policy documents in the category`

// Tools exposes the knowledge base operations as agent tools.
func (k *Knowledge) Tools() []agent.Tool {
	return []agent.Tool{
		{
			Name:   "search_products",
			Doc:    searchProductsDoc,
			Params: []agent.Param{{Name: "query", Type: agent.TypeString}},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				query, err := stringArg(args, "query")
				if err != nil {
					return nil, err
				}
				return k.SearchProducts(query), nil
			},
		},
		{
			Name:   "get_product",
			Doc:    getProductDoc,
			Params: []agent.Param{{Name: "product_id", Type: agent.TypeString}},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				productID, err := stringArg(args, "product_id")
				if err != nil {
					return nil, err
				}
				return k.GetProduct(productID), nil
			},
		},
		{
			Name: "get_products",
			Doc:  getProductsDoc,
			Handler: func(_ context.Context, _ map[string]any) (any, error) {
				return k.GetProducts(), nil
			},
		},
		{
			Name:   "get_products_by_category",
			Doc:    getProductsByCategoryDoc,
			Params: []agent.Param{{Name: "category", Type: agent.TypeString}},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				category, err := stringArg(args, "category")
				if err != nil {
					return nil, err
				}
				return k.GetProductsByCategory(category), nil
			},
		},
		{
			Name: "get_available_products",
			Doc:  getAvailableProductsDoc,
			Handler: func(_ context.Context, _ map[string]any) (any, error) {
				return k.GetAvailableProducts(), nil
			},
		},
		{
			Name:   "search_policies",
			Doc:    searchPoliciesDoc,
			Params: []agent.Param{{Name: "query", Type: agent.TypeString}},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				query, err := stringArg(args, "query")
				if err != nil {
					return nil, err
				}
				return k.SearchPolicies(query), nil
			},
		},
		{
			Name:   "get_policy",
			Doc:    getPolicyDoc,
			Params: []agent.Param{{Name: "doc_id", Type: agent.TypeString}},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				docID, err := stringArg(args, "doc_id")
				if err != nil {
					return nil, err
				}
				return k.GetPolicy(docID), nil
			},
		},
		{
			Name:   "get_policies_by_category",
			Doc:    getPoliciesByCategoryDoc,
			Params: []agent.Param{{Name: "category", Type: agent.TypeString}},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				category, err := stringArg(args, "category")
				if err != nil {
					return nil, err
				}
				return k.GetPoliciesByCategory(category), nil
			},
		},
	}
}
