package elasticsearch

// DefaultIndexPrefix prefixes the four catalog indices.
const DefaultIndexPrefix = "cosmetics"

const (
	collectionProducts      = "products"
	collectionBrands        = "brands"
	collectionCategories    = "categories"
	collectionSubcategories = "subcategories"
)

// The catalog is small, so every index has a single shard and "_doc" order
// is insertion order.
const indexSettings = `
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "french_folded": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding", "french_elision"]
        }
      },
      "filter": {
        "french_elision": {
          "type": "elision",
          "articles_case": true,
          "articles": ["l", "m", "t", "qu", "n", "s", "j", "d", "c"]
        }
      }
    }
  }`

// productMapping stores categories as nested pairs so that a subcategory
// filter only matches inside the same pair as its category.
func productMapping() string {
	return `{` + indexSettings + `,
  "mappings": {
    "properties": {
      "id":             { "type": "keyword" },
      "slug":           { "type": "keyword" },
      "name":           { "type": "text", "analyzer": "french_folded", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "brand":          { "type": "keyword" },
      "categories": {
        "type": "nested",
        "properties": {
          "category":    { "type": "keyword" },
          "subcategory": { "type": "keyword" }
        }
      },
      "price":          { "type": "double" },
      "originalPrice":  { "type": "double" },
      "discount":       { "type": "double" },
      "inStock":        { "type": "boolean" },
      "mainImage":      { "type": "keyword", "index": false },
      "images":         { "type": "keyword", "index": false },
      "description":    { "type": "text", "analyzer": "french_folded" },
      "specifications": { "type": "text", "index": false },
      "createdAt":      { "type": "date" }
    }
  }
}`
}

func lookupMapping() string {
	return `{` + indexSettings + `,
  "mappings": {
    "properties": {
      "id":             { "type": "keyword" },
      "slug":           { "type": "keyword" },
      "name":           { "type": "text", "analyzer": "french_folded", "fields": { "keyword": { "type": "keyword" } } },
      "parentCategory": { "type": "keyword" }
    }
  }
}`
}
