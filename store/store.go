package store

// 注意：此包只包含实现，接口定义在 core 包。
//
// 两层结构：
//   - core.Store 的后端实现：MemoryStore / RedisStore
//   - core.Store 之上的领域适配器：KVFeatureStore / KVFavoriteStore /
//     KVRatingStore / KVRecommendationStore / KVProfileLoader，
//     以 JSON 文档为存储格式
//   - PostgresStore 直接实现领域接口（行表 + SQL）
//
// 示例：
//   var s core.Store = NewMemoryStore()
//   recs := NewKVRecommendationStore(s)
